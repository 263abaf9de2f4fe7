// Package letter is the letter service: an intake app that accepts letters
// and forwards them to a publishing API, and the publishing API itself.
package letter

import (
	"math/rand/v2"
	"strings"

	g "github.com/reoring/plasm/dsl"
)

// Intake is the letter as stored by the intake app. apiId holds the id the
// publishing API assigned.
var Intake = g.Schema("letter").
	Field("id", g.Integer()).
	Field("apiId", g.Integer()).
	Field("swishKey", g.String(g.Required)).
	Field("document", g.String()).
	Field("recipients", g.String()).
	MustBuild()

// Published is the letter as stored by the publishing API.
var Published = g.Schema("letter").
	Field("id", g.Integer()).
	Field("document", g.String(g.Required)).
	Field("recipients", g.String()).
	Field("createdAt", g.Timestamp()).
	Field("postedAt", g.Timestamp()).
	MustBuild()

// Accepted are the request fields a client may set on a new letter.
var Accepted = []string{"document", "recipients"}

const (
	swishKeyLen = 7
	upper       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewSwishKey returns a payment reference of seven random uppercase letters.
func NewSwishKey() string {
	var b strings.Builder
	b.Grow(swishKeyLen)
	for range swishKeyLen {
		b.WriteByte(upper[rand.IntN(len(upper))])
	}
	return b.String()
}
