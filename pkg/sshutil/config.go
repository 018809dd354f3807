package sshutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SSHHostEntry is one concrete Host alias from ~/.ssh/config.
type SSHHostEntry struct {
	Alias        string
	Hostname     string
	User         string
	Port         string
	IdentityFile string
}

// Description renders the entry as [user@]host[:port], leaving out parts
// that add nothing (the alias itself, port 22).
func (h SSHHostEntry) Description() string {
	host := h.Hostname
	if host == "" {
		host = h.Alias
	}
	if h.User != "" {
		host = h.User + "@" + host
	}
	if h.Port != "" && h.Port != "22" {
		host += ":" + h.Port
	}
	return host
}

// Lookup reports what Dial would connect to for target.
func Lookup(target string) SSHHostEntry {
	ep := resolve(target)
	_, alias, _ := splitTarget(target)
	return SSHHostEntry{
		Alias:        alias,
		Hostname:     ep.host,
		User:         ep.user,
		Port:         ep.port,
		IdentityFile: ep.identity,
	}
}

// ParseSSHConfig lists the aliases in ~/.ssh/config.
func ParseSSHConfig() ([]SSHHostEntry, error) {
	return ParseSSHConfigFile(filepath.Join(homeDir(), ".ssh", "config"))
}

// ParseSSHConfigFile lists the concrete aliases in the config at path,
// sorted by name. Wildcard patterns are skipped and a missing file is not an
// error.
func ParseSSHConfigFile(path string) ([]SSHHostEntry, error) {
	cfg, _, err := loadSSHConfig(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var entries []SSHHostEntry
	for _, block := range cfg.Hosts {
		for _, pattern := range block.Patterns {
			alias := pattern.String()
			if seen[alias] || strings.ContainsAny(alias, "*?!") {
				continue
			}
			seen[alias] = true

			entry := SSHHostEntry{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			entry.Port, _ = cfg.Get(alias, "Port")
			if id, _ := cfg.Get(alias, "IdentityFile"); id != "" {
				entry.IdentityFile = expandPath(id)
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Alias < entries[j].Alias })
	return entries, nil
}
