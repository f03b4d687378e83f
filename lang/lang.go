// Package lang holds the bot's message catalog. Messages live in embedded YAML files,
// one per language, and are looked up with T.
package lang

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	Tr = "tr"
	En = "en"
)

//go:embed messages/*.yaml
var messagesFS embed.FS

var (
	catalog     map[string]map[string]string
	defaultLang = Tr
)

func init() {
	var err error
	catalog, err = load()
	if err != nil {
		panic(fmt.Sprintf("lang: %v", err))
	}
}

func load() (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, code := range []string{Tr, En} {
		raw, err := messagesFS.ReadFile("messages/" + code + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", code, err)
		}
		m := make(map[string]string)
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", code, err)
		}
		out[code] = m
	}
	return out, nil
}

// SetDefault changes the fallback language. Unknown codes are ignored.
func SetDefault(code string) {
	if Supported(code) {
		defaultLang = code
	}
}

func Default() string { return defaultLang }

func Supported(code string) bool {
	_, ok := catalog[code]
	return ok
}

// T returns the message for key in langCode, falling back to the default language and
// finally to the key itself. Args are applied with fmt.Sprintf when present.
func T(langCode, key string, args ...interface{}) string {
	msg, ok := catalog[langCode][key]
	if !ok {
		msg, ok = catalog[defaultLang][key]
	}
	if !ok {
		return key
	}
	msg = strings.TrimRight(msg, "\n")
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
