package core

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"prescription-chatbot/pkg"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon is the lookup data behind the Normalizer: label synonyms per field
// and absence phrases added on top of pkg.DefaultAbsenceRules.
type Lexicon struct {
	Fields map[pkg.Field][]string `yaml:"fields"`
	// HeadWords are synonyms that still identify their field when followed
	// by other words ("Durée prévue").  Only unambiguous words belong here.
	HeadWords []string         `yaml:"head_words"`
	Absence   pkg.AbsenceRules `yaml:"absence"`
}

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("core: embedded lexicon: %v", err))
	}
	return lex
}

// ParseLexicon decodes a YAML lexicon and rejects unknown field keys.
func ParseLexicon(data []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	for f := range lex.Fields {
		if !f.Valid() {
			return Lexicon{}, fmt.Errorf("parse lexicon: unknown field %q", f)
		}
	}
	return lex, nil
}

// LoadLexicon returns the built-in lexicon extended with the file at path.
// An empty path yields the built-in lexicon.
func LoadLexicon(path string) (Lexicon, error) {
	base := DefaultLexicon()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	extra, err := ParseLexicon(data)
	if err != nil {
		return Lexicon{}, err
	}
	return base.Merge(extra), nil
}

// Merge returns l extended with other's synonyms and absence phrases.
func (l Lexicon) Merge(other Lexicon) Lexicon {
	out := Lexicon{Fields: make(map[pkg.Field][]string, len(pkg.Fields))}
	for f, syn := range l.Fields {
		out.Fields[f] = append([]string(nil), syn...)
	}
	for f, syn := range other.Fields {
		out.Fields[f] = append(out.Fields[f], syn...)
	}
	out.HeadWords = append(append([]string(nil), l.HeadWords...), other.HeadWords...)
	out.Absence = pkg.AbsenceRules{
		Prefixes:  append(append([]string(nil), l.Absence.Prefixes...), other.Absence.Prefixes...),
		Markers:   append(append([]string(nil), l.Absence.Markers...), other.Absence.Markers...),
		MaxLength: l.Absence.MaxLength,
	}
	if other.Absence.MaxLength > 0 {
		out.Absence.MaxLength = other.Absence.MaxLength
	}
	return out
}

// AbsenceRulesFor returns the record defaults extended with l's extras.  The
// result is always a superset of pkg.DefaultAbsenceRules, so a value the
// normalizer keeps is never rejected by Record.Set.
func AbsenceRulesFor(l Lexicon) pkg.AbsenceRules {
	rules := pkg.DefaultAbsenceRules.Merge(l.Absence)
	// a shorter threshold flags more values, a longer one would flag fewer
	if rules.MaxLength > pkg.DefaultAbsenceRules.MaxLength {
		rules.MaxLength = pkg.DefaultAbsenceRules.MaxLength
	}
	return rules
}

// WatchLexicon reloads the lexicon at path into n whenever the file is
// written, until ctx is cancelled.  A file that fails to parse is logged and
// the previous lexicon stays active.
func WatchLexicon(ctx context.Context, path string, n *Normalizer, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create lexicon watcher: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve lexicon path: %w", err)
	}
	// editors replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}
	name := filepath.Base(absPath)
	log := logrus.WithField("path", path)
	log.Info("watching lexicon for changes")

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					lex, err := LoadLexicon(path)
					if err != nil {
						log.WithError(err).Warn("lexicon reload failed, keeping previous lexicon")
						return
					}
					n.Load(lex)
					log.Info("lexicon reloaded")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("lexicon watcher error")
			}
		}
	}()
	return nil
}
