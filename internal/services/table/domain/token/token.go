// Package token models the movable markers placed on a campaign's active map
// and the role-filtered views served to participants.
package token

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

// SizeType classifies a token footprint on the grid.
type SizeType string

const (
	SizeTiny   SizeType = "tiny"
	SizeSmall  SizeType = "small"
	SizeMedium SizeType = "medium"
	SizeLarge  SizeType = "large"
	SizeHuge   SizeType = "huge"
)

// Valid reports whether the size type is a known value.
func (s SizeType) Valid() bool {
	switch s {
	case SizeTiny, SizeSmall, SizeMedium, SizeLarge, SizeHuge:
		return true
	}
	return false
}

// Documented defaults for optional token fields. Every read path fills these
// in so consumers never see a partially-specified token.
const (
	DefaultBorderColor = "border-muted-foreground"
	DefaultScale       = 1.0
	DefaultRotation    = 0.0
	DefaultOpacity     = 1.0
	DefaultSize        = 40.0
	DefaultSizeType    = SizeMedium
)

// Position locates a token on the map in pixel space.
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Token is the wire shape shared with clients. OwnerID and CharacterID are
// nullable references; a nil owner means the token is GM-owned or generic.
type Token struct {
	ID            string   `json:"id"`
	Src           string   `json:"src"`
	Alt           string   `json:"alt"`
	Name          string   `json:"name"`
	Position      Position `json:"position"`
	BorderColor   string   `json:"borderColor"`
	CanPlayerMove bool     `json:"canPlayerMove"`
	OwnerID       *string  `json:"ownerId"`
	CharacterID   *string  `json:"characterId"`
	CharacterType string   `json:"characterType"`
	Hidden        bool     `json:"hidden"`
	Locked        bool     `json:"locked"`
	Scale         float64  `json:"scale"`
	Rotation      float64  `json:"rotation"`
	Opacity       float64  `json:"opacity"`
	Size          float64  `json:"tokenSize"`
	SizeType      SizeType `json:"sizeType"`
}

// wireToken mirrors Token with pointers for every defaultable field so that
// absent values can be distinguished from explicit zeroes during decoding.
type wireToken struct {
	ID            string    `json:"id"`
	Src           string    `json:"src"`
	Alt           string    `json:"alt"`
	Name          string    `json:"name"`
	Position      Position  `json:"position"`
	BorderColor   *string   `json:"borderColor"`
	CanPlayerMove *bool     `json:"canPlayerMove"`
	OwnerID       *string   `json:"ownerId"`
	CharacterID   *string   `json:"characterId"`
	CharacterType string    `json:"characterType"`
	Hidden        bool      `json:"hidden"`
	Locked        bool      `json:"locked"`
	Scale         *float64  `json:"scale"`
	Rotation      *float64  `json:"rotation"`
	Opacity       *float64  `json:"opacity"`
	Size          *float64  `json:"tokenSize"`
	SizeType      *SizeType `json:"sizeType"`
}

// UnmarshalJSON decodes a token and fills documented defaults for absent
// optional fields. Decoding the same bytes twice yields identical tokens, and
// re-encoding always emits every field so consumers stay default-free.
func (t *Token) UnmarshalJSON(data []byte) error {
	var wire wireToken
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	t.ID = wire.ID
	t.Src = wire.Src
	t.Alt = wire.Alt
	t.Name = wire.Name
	t.Position = wire.Position
	t.OwnerID = wire.OwnerID
	t.CharacterID = wire.CharacterID
	t.CharacterType = wire.CharacterType
	t.Hidden = wire.Hidden
	t.Locked = wire.Locked

	t.BorderColor = DefaultBorderColor
	if wire.BorderColor != nil && strings.TrimSpace(*wire.BorderColor) != "" {
		t.BorderColor = *wire.BorderColor
	}
	// canPlayerMove defaults to true unless explicitly false.
	t.CanPlayerMove = wire.CanPlayerMove == nil || *wire.CanPlayerMove
	t.Scale = DefaultScale
	if wire.Scale != nil {
		t.Scale = *wire.Scale
	}
	t.Rotation = DefaultRotation
	if wire.Rotation != nil {
		t.Rotation = *wire.Rotation
	}
	t.Opacity = DefaultOpacity
	if wire.Opacity != nil {
		t.Opacity = *wire.Opacity
	}
	t.Size = DefaultSize
	if wire.Size != nil {
		t.Size = *wire.Size
	}
	t.SizeType = DefaultSizeType
	if wire.SizeType != nil && *wire.SizeType != "" {
		t.SizeType = *wire.SizeType
	}

	return nil
}

// Normalize fills documented defaults on a token constructed in code. Zero
// values for defaultable numeric fields are treated as absent; CanPlayerMove
// is left untouched since false is a meaningful value there.
func Normalize(t Token) Token {
	if strings.TrimSpace(t.BorderColor) == "" {
		t.BorderColor = DefaultBorderColor
	}
	if t.Scale == 0 {
		t.Scale = DefaultScale
	}
	if t.Opacity == 0 {
		t.Opacity = DefaultOpacity
	}
	if t.Size == 0 {
		t.Size = DefaultSize
	}
	if t.SizeType == "" {
		t.SizeType = DefaultSizeType
	}
	return t
}

// DecodeList deserializes a stored token collection, applying defaults to
// every entry. Empty input yields an empty collection.
func DecodeList(data []byte) ([]Token, error) {
	if len(data) == 0 {
		return []Token{}, nil
	}
	var tokens []Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTokenListMalformed, "decode token collection", err)
	}
	if tokens == nil {
		tokens = []Token{}
	}
	return tokens, nil
}

// EncodeList serializes a token collection for storage. Insertion order is
// preserved; it doubles as the z-order fallback.
func EncodeList(tokens []Token) ([]byte, error) {
	if tokens == nil {
		tokens = []Token{}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("encode token collection: %w", err)
	}
	return data, nil
}

// ValidateList checks a replacement collection before it is persisted.
func ValidateList(tokens []Token) error {
	seen := make(map[string]struct{}, len(tokens))
	for i, t := range tokens {
		if strings.TrimSpace(t.ID) == "" {
			return apperrors.WithMetadata(apperrors.CodeTokenIDEmpty,
				fmt.Sprintf("token at index %d has no id", i),
				map[string]string{"index": fmt.Sprintf("%d", i)})
		}
		if _, dup := seen[t.ID]; dup {
			return apperrors.WithMetadata(apperrors.CodeTokenListMalformed,
				fmt.Sprintf("duplicate token id %q", t.ID),
				map[string]string{"token_id": t.ID})
		}
		seen[t.ID] = struct{}{}
		if t.SizeType != "" && !t.SizeType.Valid() {
			return apperrors.WithMetadata(apperrors.CodeTokenInvalidSize,
				fmt.Sprintf("token %q has unknown size type %q", t.ID, t.SizeType),
				map[string]string{"token_id": t.ID, "size_type": string(t.SizeType)})
		}
		if t.Opacity < 0 || t.Opacity > 1 {
			return apperrors.WithMetadata(apperrors.CodeValidationFailed,
				fmt.Sprintf("token %q opacity %v outside [0, 1]", t.ID, t.Opacity),
				map[string]string{"token_id": t.ID})
		}
		if t.Size < 0 {
			return apperrors.WithMetadata(apperrors.CodeTokenInvalidSize,
				fmt.Sprintf("token %q has negative size", t.ID),
				map[string]string{"token_id": t.ID})
		}
	}
	return nil
}

// Viewer identifies the participant a token view is computed for.
type Viewer struct {
	UserID string
	GM     bool
}

// FilterForViewer computes the role-filtered view of a token collection.
//
// GMs see every token. Players see tokens they own plus tokens that are not
// hidden; hidden tokens owned by someone else are excluded entirely so their
// position and identity never reach the player's client.
func FilterForViewer(tokens []Token, viewer Viewer) []Token {
	if viewer.GM {
		return tokens
	}
	visible := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Hidden && !ownedBy(t, viewer.UserID) {
			continue
		}
		visible = append(visible, t)
	}
	return visible
}

// FindByID returns the index of a token in the collection, or -1.
func FindByID(tokens []Token, id string) int {
	for i, t := range tokens {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func ownedBy(t Token, userID string) bool {
	return t.OwnerID != nil && *t.OwnerID == userID && userID != ""
}

// MovableBy reports whether the given user may re-position the token through
// the player move path. GM moves bypass this check.
func MovableBy(t Token, userID string) bool {
	if t.Locked {
		return false
	}
	if !t.CanPlayerMove {
		return false
	}
	return ownedBy(t, userID)
}
