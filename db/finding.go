package db

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// FindingType is the closed set of payload shapes downstream consumers
// accept. "portscan" is deliberately not a member: writes using that label
// are rejected rather than silently accepted alongside "port".
type FindingType string

const (
	FindingTypeSubdomain   FindingType = "subdomain"
	FindingTypePort        FindingType = "port"
	FindingTypeHTTP        FindingType = "http"
	FindingTypeEnrichment  FindingType = "enrichment"
	FindingTypeCloudBucket FindingType = "cloud_bucket"
	FindingTypeGithub      FindingType = "github"
	FindingTypeScreenshot  FindingType = "screenshot"
)

func (t FindingType) valid() bool {
	switch t {
	case FindingTypeSubdomain, FindingTypePort, FindingTypeHTTP, FindingTypeEnrichment,
		FindingTypeCloudBucket, FindingTypeGithub, FindingTypeScreenshot:
		return true
	default:
		return false
	}
}

// Finding is one structured observation produced by a module during a scan.
type Finding struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	ScanID    *string `gorm:"index;size:64"`
	Target    string  `gorm:"index;not null"`
	Module    string  `gorm:"not null"` // "<category>/<source>"
	Source    string  `gorm:"not null"`
	Type      FindingType `gorm:"index;size:32;not null"`
	Data      string      `gorm:"type:text;not null"`
	Timestamp time.Time   `gorm:"index"`
}

// ErrInvalidFindingType is returned by StoreFinding for any type outside the
// closed FindingType set.
var ErrInvalidFindingType = fmt.Errorf("invalid finding type")

// StoreFinding serializes payload to canonical JSON and appends a Finding
// row. Storage failures are logged and swallowed: a lost finding must never
// abort the scan that produced it.
func (d *DatabaseConnection) StoreFinding(scanID *string, target, module, source string, typ FindingType, payload any) error {
	if !typ.valid() {
		log.Error().Str("type", string(typ)).Str("module", module).Msg("rejecting finding with unrecognized type")
		return ErrInvalidFindingType
	}

	encoded, err := canonicalJSON(payload)
	if err != nil {
		log.Error().Err(err).Str("module", module).Str("type", string(typ)).Msg("failed to encode finding payload")
		return nil
	}

	finding := Finding{
		ScanID:    scanID,
		Target:    target,
		Module:    module,
		Source:    source,
		Type:      typ,
		Data:      encoded,
		Timestamp: time.Now(),
	}
	if err := d.db.Create(&finding).Error; err != nil {
		log.Error().Err(err).Str("module", module).Str("target", target).Msg("failed to store finding")
		return nil
	}
	return nil
}

// GetFindings returns findings matching target and/or scanID, optionally
// filtered by module. A scanID filter takes precedence over target. A module
// containing "/" matches exactly; otherwise it matches as a "<module>/*"
// prefix.
func (d *DatabaseConnection) GetFindings(target string, module *string, scanID *string) ([]Finding, error) {
	q := d.db.Model(&Finding{})
	if scanID != nil && *scanID != "" {
		q = q.Where("scan_id = ?", *scanID)
	} else {
		q = q.Where("target = ?", target)
	}
	if module != nil && *module != "" {
		if containsSlash(*module) {
			q = q.Where("module = ?", *module)
		} else {
			q = q.Where("module LIKE ?", *module+"/%")
		}
	}
	var findings []Finding
	err := q.Order("id ASC").Find(&findings).Error
	return findings, err
}

func containsSlash(s string) bool {
	for _, r := range s {
		if r == '/' {
			return true
		}
	}
	return false
}

// GetUniqueSubdomains returns the sorted, deduplicated union of the
// "subdomain" key across every subdomain-type finding for target.
func (d *DatabaseConnection) GetUniqueSubdomains(target string) ([]string, error) {
	findings, err := d.GetFindings(target, nil, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, f := range findings {
		if f.Type != FindingTypeSubdomain {
			continue
		}
		for _, entry := range decodeEntries(f.Data) {
			if name, ok := entry["subdomain"].(string); ok && name != "" {
				seen[name] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// GetUniqueFindings deduplicates payload objects of the given type across
// all sources for target. keyFields, when non-empty, names the payload
// fields forming the dedup key; otherwise the whole object (canonical JSON)
// is the key.
func (d *DatabaseConnection) GetUniqueFindings(target string, typ FindingType, keyFields []string) ([]map[string]any, error) {
	findings, err := d.GetFindings(target, nil, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var unique []map[string]any
	for _, f := range findings {
		if f.Type != typ {
			continue
		}
		for _, entry := range decodeEntries(f.Data) {
			key, err := dedupKey(entry, keyFields)
			if err != nil {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			unique = append(unique, entry)
		}
	}
	return unique, nil
}

func dedupKey(entry map[string]any, keyFields []string) (string, error) {
	if len(keyFields) == 0 {
		b, err := canonicalJSON(entry)
		return b, err
	}
	parts := make([]any, 0, len(keyFields))
	for _, field := range keyFields {
		parts = append(parts, entry[field])
	}
	return canonicalJSON(parts)
}

// decodeEntries normalizes a stored payload (object or array of objects)
// into a slice of generic maps.
func decodeEntries(data string) []map[string]any {
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		entries := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				entries = append(entries, m)
			}
		}
		return entries
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

// Compact physically removes rows whose (type, data) duplicates an earlier
// row for target, optionally restricted to one type. Returns the number of
// rows deleted.
func (d *DatabaseConnection) Compact(target string, typ *FindingType) (int, error) {
	q := d.db.Model(&Finding{}).Where("target = ?", target)
	if typ != nil {
		q = q.Where("type = ?", *typ)
	}
	var rows []Finding
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(rows))
	var toDelete []uint
	for _, row := range rows {
		key := string(row.Type) + "\x00" + row.Data
		if _, ok := seen[key]; ok {
			toDelete = append(toDelete, row.ID)
			continue
		}
		seen[key] = struct{}{}
	}

	if len(toDelete) == 0 {
		return 0, nil
	}
	if err := d.db.Where("id IN ?", toDelete).Delete(&Finding{}).Error; err != nil {
		return 0, err
	}
	return len(toDelete), nil
}

// ClearHistory truncates both the scans and findings tables.
func (d *DatabaseConnection) ClearHistory() error {
	if err := d.db.Exec("DELETE FROM findings").Error; err != nil {
		return err
	}
	return d.db.Exec("DELETE FROM scans").Error
}

// canonicalJSON marshals v with map keys sorted so byte-equal output implies
// semantic equality for the Compact dedup pass. encoding/json already sorts
// map[string]any keys; struct payloads are deterministic by declared field
// order, which is sufficient since the same Go type always marshals the
// same way.
func canonicalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
