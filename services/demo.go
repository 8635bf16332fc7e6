package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	demoIDPrefix   = "demo-"
	orphanIDPrefix = "orphan-"
)

// DemoIDs issues registration identifiers that never touch the store.
// Each id carries an HMAC tag so a client cannot mint one to bypass
// seat assignment. Demo ids belong to the demo tournament and are only
// honoured in demo mode. Orphan ids stand in for a real order whose
// registration row could not be written; they always go to reconciliation.
type DemoIDs struct {
	key []byte
}

func NewDemoIDs(secret string) DemoIDs {
	return DemoIDs{key: []byte("demo-registration:" + secret)}
}

func (d DemoIDs) tag(body string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

func (d DemoIDs) issue(prefix string) string {
	body := prefix + uuid.NewString()
	return body + "." + d.tag(body)
}

func (d DemoIDs) signed(prefix, id string) bool {
	if !strings.HasPrefix(id, prefix) {
		return false
	}
	dot := strings.LastIndexByte(id, '.')
	if dot < 0 {
		return false
	}
	body, tag := id[:dot], id[dot+1:]
	return hmac.Equal([]byte(d.tag(body)), []byte(tag))
}

// New returns a fresh tagged demo registration id.
func (d DemoIDs) New() string {
	return d.issue(demoIDPrefix)
}

// NewOrphan returns a tagged id for an order that has no registration row.
func (d DemoIDs) NewOrphan() string {
	return d.issue(orphanIDPrefix)
}

// Valid reports whether id is a demo id issued by New with the same secret.
func (d DemoIDs) Valid(id string) bool {
	return d.signed(demoIDPrefix, id)
}

// Orphan reports whether id was issued by NewOrphan with the same secret.
func (d DemoIDs) Orphan(id string) bool {
	return d.signed(orphanIDPrefix, id)
}
