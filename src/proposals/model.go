// Package proposals holds the listing, ranking and answer rules for citizen
// proposals together with the service that drives them.
package proposals

import (
	"fmt"
	"time"
)

// AuthorKind tags who authored a proposal.
type AuthorKind string

const (
	AuthorUser     AuthorKind = "user"
	AuthorGroup    AuthorKind = "group"
	AuthorOfficial AuthorKind = "official"
)

// Author is either a user, a user group or the organization itself.
// ID is zero for official authorship.
type Author struct {
	Kind AuthorKind `json:"kind"`
	ID   int64      `json:"id,omitempty"`
}

func UserAuthor(id int64) Author  { return Author{Kind: AuthorUser, ID: id} }
func GroupAuthor(id int64) Author { return Author{Kind: AuthorGroup, ID: id} }
func OfficialAuthor() Author      { return Author{Kind: AuthorOfficial} }

func (a Author) IsOfficial() bool { return a.Kind == AuthorOfficial }

// Origin is derived from the author: official or citizenship.
type Origin string

const (
	OriginOfficial    Origin = "official"
	OriginCitizenship Origin = "citizenship"
)

// AnswerState is the answer lifecycle position of a proposal.
type AnswerState string

const (
	StatePending  AnswerState = "pending"
	StateAccepted AnswerState = "accepted"
	StateRejected AnswerState = "rejected"
)

// LocalizedText maps a locale to its translation.
type LocalizedText map[string]string

// Translated returns the text for locale, falling back to "en" and then to
// any non-empty translation.
func (t LocalizedText) Translated(locale string) string {
	if v := t[locale]; v != "" {
		return v
	}
	if v := t["en"]; v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

type Answer struct {
	State         AnswerState   `json:"state"`
	Justification LocalizedText `json:"justification"`
	AnsweredAt    time.Time     `json:"answered_at"`
}

type Proposal struct {
	ID         int64     `json:"id"`
	FeatureID  int64     `json:"feature_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Author     Author    `json:"author"`
	CategoryID *int64    `json:"category_id,omitempty"`
	ScopeID    *int64    `json:"scope_id,omitempty"`
	VoteCount  int       `json:"vote_count"`
	Answer     *Answer   `json:"answer,omitempty"`
	Address    string    `json:"address,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p Proposal) Origin() Origin {
	if p.Author.IsOfficial() {
		return OriginOfficial
	}
	return OriginCitizenship
}

// State reports pending when the proposal has not been answered.
func (p Proposal) State() AnswerState {
	if p.Answer == nil || p.Answer.State == "" {
		return StatePending
	}
	return p.Answer.State
}

// Reference renders the public reference label, e.g. "D-PROP-2017-02-6".
func (p Proposal) Reference(prefix string) string {
	if prefix == "" {
		prefix = "D"
	}
	return fmt.Sprintf("%s-PROP-%d-%02d-%d", prefix, p.CreatedAt.Year(), int(p.CreatedAt.Month()), p.ID)
}

type Category struct {
	ID        int64         `json:"id"`
	ProcessID int64         `json:"process_id,omitempty"`
	Name      LocalizedText `json:"name"`
}

type Scope struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
