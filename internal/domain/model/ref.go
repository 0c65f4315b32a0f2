package model

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nrednav/cuid2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefKind tells which identifier space a VideoRef belongs to.
type RefKind int

const (
	RefObjectID RefKind = iota + 1
	RefShortID
)

// VideoRef is a parsed video identifier: either a 24-char hex primary key
// or a short alias.
type VideoRef struct {
	Kind    RefKind
	ID      primitive.ObjectID
	ShortID string
}

var ErrEmptyVideoRef = errors.New("video identifier cannot be empty")

// ParseVideoRef tries the strict primary-key form first and falls back to
// the short alias.
func ParseVideoRef(raw string) (VideoRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return VideoRef{}, ErrEmptyVideoRef
	}
	if id, err := primitive.ObjectIDFromHex(raw); err == nil {
		return VideoRef{Kind: RefObjectID, ID: id}, nil
	}
	return VideoRef{Kind: RefShortID, ShortID: raw}, nil
}

// RefForID builds a primary-key reference.
func RefForID(id primitive.ObjectID) VideoRef {
	return VideoRef{Kind: RefObjectID, ID: id}
}

func (r VideoRef) String() string {
	if r.Kind == RefObjectID {
		return r.ID.Hex()
	}
	return r.ShortID
}

const shortIDLength = 10

var shortIDGenerator func() string

type sessionCounter struct {
	value int64
}

func (c *sessionCounter) Increment() int64 {
	return atomic.AddInt64(&c.value, 1)
}

func init() {
	var err error
	shortIDGenerator, err = cuid2.Init(
		cuid2.WithRandomFunc(rand.Float64),
		cuid2.WithLength(shortIDLength),
		cuid2.WithSessionCounter(&sessionCounter{value: time.Now().UnixNano()}),
	)
	if err != nil {
		panic(err)
	}
}

// NewShortID returns a compact URL-safe alias for a video.
func NewShortID() string {
	return shortIDGenerator()
}
