package model

import "strings"

// DomainRole classifies a structure entry's role inside its network.
type DomainRole string

const (
	RoleMain    DomainRole = "main"
	RoleSupport DomainRole = "support"
)

// String returns the string representation of the role.
func (r DomainRole) String() string {
	return string(r)
}

// IsValid checks whether the role is a known value.
func (r DomainRole) IsValid() bool {
	switch r {
	case RoleMain, RoleSupport:
		return true
	}
	return false
}

// IndexStatus is the indexing signal configured on an entry.
type IndexStatus string

const (
	IndexStatusIndex   IndexStatus = "index"
	IndexStatusNoindex IndexStatus = "noindex"
)

// String returns the string representation of the index status.
func (s IndexStatus) String() string {
	return string(s)
}

// IsValid checks whether the index status is a known value.
func (s IndexStatus) IsValid() bool {
	switch s {
	case IndexStatusIndex, IndexStatusNoindex:
		return true
	}
	return false
}

// RedirectType is the redirect configured on an entry, if any.
type RedirectType string

const (
	RedirectNone RedirectType = "none"
	Redirect301  RedirectType = "301"
	Redirect302  RedirectType = "302"
)

// String returns the string representation of the redirect type.
func (t RedirectType) String() string {
	return string(t)
}

// IsValid checks whether the redirect type is a known value.
func (t RedirectType) IsValid() bool {
	switch t {
	case RedirectNone, Redirect301, Redirect302:
		return true
	}
	return false
}

// StructureEntry is one managed page in a network graph. Entries are owned
// by the network-editing subsystem; the engine only reads them.
type StructureEntry struct {
	ID            string       `json:"id"`
	NetworkID     string       `json:"network_id"`
	Domain        string       `json:"domain"`
	Path          string       `json:"path,omitempty"`
	Tier          int          `json:"tier"`
	Role          DomainRole   `json:"domain_role"`
	TargetEntryID string       `json:"target_entry_id,omitempty"` // empty = no outgoing edge
	IndexStatus   IndexStatus  `json:"index_status"`
	CanonicalURL  string       `json:"canonical_url,omitempty"`
	RedirectType  RedirectType `json:"redirect_type"`
	Keywords      []string     `json:"keywords,omitempty"`
}

// IsMain reports whether the entry is the network's main (money-site) target.
func (e *StructureEntry) IsMain() bool {
	return e.Role == RoleMain
}

// URL returns the entry's domain+path identity, normalized without a scheme.
func (e *StructureEntry) URL() string {
	d := strings.TrimSuffix(e.Domain, "/")
	p := e.Path
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return d + p
}

// CanonicalMatches reports whether the entry's canonical URL resolves to its
// own domain+path identity. Scheme and trailing slash are ignored; an empty
// canonical is treated as self-referential.
func (e *StructureEntry) CanonicalMatches() bool {
	if e.CanonicalURL == "" {
		return true
	}
	return normalizeURL(e.CanonicalURL) == normalizeURL(e.URL())
}

func normalizeURL(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	u = strings.TrimSuffix(u, "/")
	return strings.ToLower(u)
}
