package entities

import (
	"sort"
	"strings"
)

// AliasMap is the account vocabulary: every alias maps to the dataset accounts it names.
// An account "Expense - Marketing" is reachable as "expense - marketing" and "marketing".
type AliasMap struct {
	accounts []string
	aliases  map[string][]string
	// stemmed token sequences, longest first
	entries []aliasEntry
}

type aliasEntry struct {
	alias string
	stems []string
}

// NewAliasMap builds aliases from account names. Extra aliases may map a custom phrase to an account.
func NewAliasMap(accounts []string, extra map[string]string) *AliasMap {
	m := &AliasMap{aliases: make(map[string][]string)}

	seen := make(map[string]bool)
	for _, account := range accounts {
		name := strings.TrimSpace(account)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		m.accounts = append(m.accounts, name)

		m.add(Normalize(name), name)
		if i := strings.LastIndex(name, " - "); i >= 0 {
			m.add(Normalize(name[i+3:]), name)
		}
	}
	for alias, account := range extra {
		if seen[account] {
			m.add(Normalize(alias), account)
		}
	}

	for alias := range m.aliases {
		m.entries = append(m.entries, aliasEntry{alias: alias, stems: stems(Tokenize(alias))})
	}
	sort.Slice(m.entries, func(i, j int) bool {
		if len(m.entries[i].stems) != len(m.entries[j].stems) {
			return len(m.entries[i].stems) > len(m.entries[j].stems)
		}
		return m.entries[i].alias < m.entries[j].alias
	})
	return m
}

func (m *AliasMap) add(alias, account string) {
	if alias == "" {
		return
	}
	for _, existing := range m.aliases[alias] {
		if existing == account {
			return
		}
	}
	m.aliases[alias] = append(m.aliases[alias], account)
}

// Accounts returns the known account names in dataset order.
func (m *AliasMap) Accounts() []string {
	return append([]string(nil), m.accounts...)
}

// Lookup returns the accounts an exact (normalized) alias names.
func (m *AliasMap) Lookup(alias string) []string {
	return append([]string(nil), m.aliases[Normalize(alias)]...)
}

// Aliases returns every alias, sorted.
func (m *AliasMap) Aliases() []string {
	out := make([]string, 0, len(m.aliases))
	for a := range m.aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

type aliasMatch struct {
	alias string
	start int // byte offset
	first int // token index
	n     int // token count
}

// match finds non-overlapping aliases in text order, longest alias winning at each position.
func (m *AliasMap) match(tokens []Token) []aliasMatch {
	var out []aliasMatch
	have := stems(tokens)
	for i := 0; i < len(have); {
		found := false
		for _, e := range m.entries {
			n := len(e.stems)
			if n == 0 || i+n > len(have) {
				continue
			}
			ok := true
			for j := 0; j < n; j++ {
				if have[i+j] != e.stems[j] {
					ok = false
					break
				}
			}
			if ok {
				out = append(out, aliasMatch{alias: e.alias, start: tokens[i].Start, first: i, n: n})
				i += n
				found = true
				break
			}
		}
		if !found {
			i++
		}
	}
	return out
}
