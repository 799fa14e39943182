package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/SpiderChef/internal/steps"
)

// Форматы вывода.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Document возвращает декларативную форму рецепта.
// Поля идут в порядке объявления модели, шаги — в форме их определений.
func (r *Recipe) Document() *orderedmap.OrderedMap[string, any] {
	doc := orderedmap.New[string, any]()
	doc.Set(keyName, r.Name)
	doc.Set(keyVersion, r.Version)
	doc.Set(keyBaseURL, r.BaseURL)
	doc.Set(keyHTTPVersion, r.HTTPVersion)
	doc.Set(keyImpersonate, r.Impersonate)
	doc.Set(keyDefaultEncoding, r.DefaultEncoding)

	if len(r.Headers) > 0 {
		headers := make(map[string]any, len(r.Headers))
		for k, v := range r.Headers {
			headers[k] = v
		}
		doc.Set(keyHeaders, headers)
	}
	if len(r.Proxies) > 0 {
		proxies := make([]any, len(r.Proxies))
		for i, p := range r.Proxies {
			m := map[string]any{"proxy_url": p.URL}
			if p.Username != "" {
				m["username"] = p.Username
			}
			if p.Password != "" {
				m["password"] = p.Password
			}
			proxies[i] = m
		}
		doc.Set(keyProxies, proxies)
	}
	if len(r.Variables) > 0 {
		doc.Set(keyVariables, r.Variables)
	}
	if r.RateLimit > 0 {
		doc.Set(keyRateLimit, r.RateLimit)
	}
	doc.Set(keySteps, steps.Definitions(r.Steps))
	return doc
}

// Marshal сериализует рецепт в YAML.
func Marshal(r *Recipe) ([]byte, error) {
	return encodeYAML(r.Document())
}

// WriteOutput записывает результат выполнения в файл в формате yaml или json.
func WriteOutput(path, format string, value any) error {
	var buf bytes.Buffer
	if err := EncodeOutput(&buf, format, value); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// EncodeOutput пишет результат выполнения в w.
func EncodeOutput(w io.Writer, format string, value any) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML, "":
		data, err = encodeYAML(value)
	case FormatJSON:
		data, err = json.MarshalIndent(value, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = w.Write(data)
	return err
}

// encodeYAML сериализует значение, сохраняя порядок упорядоченных mapping'ов.
func encodeYAML(value any) ([]byte, error) {
	node, err := yamlNode(value)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yamlNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case *orderedmap.OrderedMap[string, any]:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if err := appendPair(node, pair.Key, pair.Value); err != nil {
				return nil, err
			}
		}
		return node, nil
	case steps.Definition:
		return yamlNode(map[string]any(v))
	case map[string]any:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := appendPair(node, k, v[k]); err != nil {
				return nil, err
			}
		}
		return node, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			child, err := yamlNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(value); err != nil {
			return nil, err
		}
		return node, nil
	}
}

func appendPair(node *yaml.Node, key string, value any) error {
	child, err := yamlNode(value)
	if err != nil {
		return err
	}
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		child,
	)
	return nil
}
