package prompts

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var promptExtensions = []string{"", ".txt", ".md", ".tmpl"}

// FileLoader resolves prompt files either as paths or as names inside Dir.
// Prompt files are Go templates with the sprig functions available, and
// become the system message that opens a conversation.
type FileLoader struct {
	Dir  string
	Vars map[string]interface{}
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{
		Dir:  dir,
		Vars: map[string]interface{}{},
	}
}

func (l *FileLoader) Resolve(name string) (string, error) {
	if name == "" {
		return "", errors.New("prompt file name is empty")
	}

	var candidates []string
	if strings.ContainsRune(name, os.PathSeparator) || filepath.IsAbs(name) {
		candidates = append(candidates, name)
	} else {
		for _, ext := range promptExtensions {
			candidates = append(candidates, filepath.Join(l.Dir, name+ext))
		}
		candidates = append(candidates, name)
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", errors.Errorf("prompt file %s not found (looked in %s)", name, l.Dir)
}

func (l *FileLoader) LoadPromptFile(name string) (conversation.Message, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return conversation.Message{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return conversation.Message{}, errors.Wrapf(err, "could not read prompt file %s", path)
	}

	tmpl, err := template.New(filepath.Base(path)).Funcs(sprig.TxtFuncMap()).Parse(string(b))
	if err != nil {
		return conversation.Message{}, errors.Wrapf(err, "could not parse prompt file %s", path)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, l.Vars); err != nil {
		return conversation.Message{}, errors.Wrapf(err, "could not render prompt file %s", path)
	}

	log.Debug().Str("path", path).Int("length", buf.Len()).Msg("loaded prompt file")
	return conversation.NewChatMessage(conversation.RoleSystem, strings.TrimSpace(buf.String())), nil
}
