package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed translations/*.yaml
var embeddedTranslations embed.FS

// translationFile é o formato dos arquivos em translations/
type translationFile struct {
	Language string            `yaml:"language"`
	Messages map[string]string `yaml:"messages"`
}

// Translator entrega printers localizados a partir do catálogo carregado
type Translator struct {
	catalog   *catalog.Builder
	languages []language.Tag
}

// NewTranslator carrega os catálogos embutidos. Falhas são logadas e
// os textos caem para o inglês.
func NewTranslator() *Translator {
	t, err := LoadTranslations(embeddedTranslations, "translations")
	if err != nil {
		log.Printf("⚠️  [I18N] Some translations failed to load, falling back to English: %v", err)
	}
	return t
}

// LoadTranslations lê todos os arquivos .yaml do diretório. Arquivos inválidos
// são ignorados e reportados no erro devolvido.
func LoadTranslations(fsys fs.FS, dir string) (*Translator, error) {
	t := &Translator{
		catalog: catalog.NewBuilder(catalog.Fallback(language.English)),
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return t, fmt.Errorf("listing translations: %w", err)
	}

	var errs []error
	for _, name := range files {
		if err := t.loadFile(fsys, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
	}
	return t, errors.Join(errs...)
}

func (t *Translator) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}

	var file translationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	tag, err := language.Parse(file.Language)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", file.Language, err)
	}

	for key, msg := range file.Messages {
		if err := t.catalog.SetString(tag, key, msg); err != nil {
			return fmt.Errorf("message %q: %w", key, err)
		}
	}
	t.languages = append(t.languages, tag)
	return nil
}

// Languages lista os idiomas carregados
func (t *Translator) Languages() []language.Tag {
	return t.languages
}

// Printer devolve um printer para a variante; sem tradução, a chave em inglês é usada
func (t *Translator) Printer(v Variant) *message.Printer {
	if t == nil || t.catalog == nil {
		return message.NewPrinter(v.Tag())
	}
	return message.NewPrinter(v.Tag(), message.Catalog(t.catalog))
}
