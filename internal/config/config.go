// Package config loads the TOML configuration file described in spec.md
// §6: an [hteapot] section of server settings and an ordered [proxy]
// section of path-prefix -> upstream-URL rules.
package config

import (
	"fmt"
	"sort"

	toml "github.com/pelletier/go-toml"
)

// ProxyRule is one declared (prefix, upstream) pair. Order matters: rules
// are matched in declaration order, first match wins, per spec.md §3.
type ProxyRule struct {
	Prefix   string
	Upstream string
}

// Config is the fully parsed configuration file.
type Config struct {
	Port     uint16
	Host     string
	Root     string
	Threads  uint16
	Cache    bool
	CacheTTL uint16
	LogFile  string // empty means stdout
	Index    string
	Proxy    []ProxyRule
}

// Defaults mirror a minimal, workable file server: bind on all
// interfaces, serve the working directory, four workers, no cache.
func Defaults() Config {
	return Config{
		Port:    8080,
		Host:    "0.0.0.0",
		Root:    ".",
		Threads: 4,
		Index:   "index.html",
	}
}

// Load reads and parses the TOML file at path.
func Load(path string) (Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	return fromTree(tree)
}

// Parse parses TOML already held in memory — used by tests so they don't
// need to touch the filesystem.
func Parse(data string) (Config, error) {
	tree, err := toml.Load(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return fromTree(tree)
}

func fromTree(tree *toml.Tree) (Config, error) {
	cfg := Defaults()

	section, ok := tree.Get("hteapot").(*toml.Tree)
	if !ok {
		return Config{}, fmt.Errorf("config missing required [hteapot] section")
	}

	if v, ok := section.Get("port").(int64); ok {
		cfg.Port = uint16(v)
	}
	if v, ok := section.Get("host").(string); ok {
		cfg.Host = v
	}
	if v, ok := section.Get("root").(string); ok {
		cfg.Root = v
	}
	if v, ok := section.Get("threads").(int64); ok {
		cfg.Threads = uint16(v)
	}
	if v, ok := section.Get("cache").(bool); ok {
		cfg.Cache = v
	}
	if v, ok := section.Get("cache_ttl").(int64); ok {
		cfg.CacheTTL = uint16(v)
	}
	if v, ok := section.Get("log_file").(string); ok {
		cfg.LogFile = v
	}
	if v, ok := section.Get("index").(string); ok {
		cfg.Index = v
	}

	if proxySection, ok := tree.Get("proxy").(*toml.Tree); ok {
		rules, err := parseProxyRules(proxySection)
		if err != nil {
			return Config{}, err
		}
		cfg.Proxy = rules
	}

	return cfg, nil
}

// parseProxyRules walks proxySection's keys in declaration order — go-toml's
// Tree.Keys() comes from a Go map and has no defined order, so the keys are
// sorted by their source position — and warns (by returning an error, since
// loading happens once at startup and the spec calls this a fatal
// configuration mistake) if a "/" catch-all rule appears anywhere but last,
// per spec.md §9's load-time warning guidance.
func parseProxyRules(proxySection *toml.Tree) ([]ProxyRule, error) {
	keys := proxySection.Keys()
	sort.Slice(keys, func(a, b int) bool {
		pa, pb := proxySection.GetPosition(keys[a]), proxySection.GetPosition(keys[b])
		if pa.Line != pb.Line {
			return pa.Line < pb.Line
		}
		return pa.Col < pb.Col
	})
	rules := make([]ProxyRule, 0, len(keys))
	for i, prefix := range keys {
		upstream, ok := proxySection.Get(prefix).(string)
		if !ok {
			return nil, fmt.Errorf("proxy rule %q must be a string upstream URL", prefix)
		}
		if prefix == "/" && i != len(keys)-1 {
			return nil, fmt.Errorf("proxy rule \"/\" short-circuits all others and must be declared last")
		}
		rules = append(rules, ProxyRule{Prefix: prefix, Upstream: upstream})
	}
	return rules, nil
}
