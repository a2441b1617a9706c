package token

import (
	"encoding/json"
	"reflect"
	"testing"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

func strptr(s string) *string { return &s }

// TestDecodeFillsDefaults ensures a minimally-specified token receives every
// documented default on read.
func TestDecodeFillsDefaults(t *testing.T) {
	raw := []byte(`[{"id":"t1","position":{"top":10,"left":20}}]`)

	tokens, err := DecodeList(raw)
	if err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected 1 token, got %d", len(tokens))
	}

	tok := tokens[0]
	if tok.BorderColor != DefaultBorderColor {
		t.Errorf("border color = %q, want %q", tok.BorderColor, DefaultBorderColor)
	}
	if !tok.CanPlayerMove {
		t.Error("canPlayerMove should default to true")
	}
	if tok.Scale != DefaultScale {
		t.Errorf("scale = %v, want %v", tok.Scale, DefaultScale)
	}
	if tok.Rotation != DefaultRotation {
		t.Errorf("rotation = %v, want %v", tok.Rotation, DefaultRotation)
	}
	if tok.Opacity != DefaultOpacity {
		t.Errorf("opacity = %v, want %v", tok.Opacity, DefaultOpacity)
	}
	if tok.Size != DefaultSize {
		t.Errorf("tokenSize = %v, want %v", tok.Size, DefaultSize)
	}
	if tok.SizeType != DefaultSizeType {
		t.Errorf("sizeType = %q, want %q", tok.SizeType, DefaultSizeType)
	}
	if tok.Position.Top != 10 || tok.Position.Left != 20 {
		t.Errorf("position = %+v, want {10 20}", tok.Position)
	}
}

// TestDecodeKeepsExplicitValues ensures explicit false/zero values survive.
func TestDecodeKeepsExplicitValues(t *testing.T) {
	raw := []byte(`[{"id":"t1","canPlayerMove":false,"scale":2.5,"opacity":0.25,"rotation":90,"tokenSize":80,"sizeType":"huge","borderColor":"border-red"}]`)

	tokens, err := DecodeList(raw)
	if err != nil {
		t.Fatalf("decode list: %v", err)
	}
	tok := tokens[0]
	if tok.CanPlayerMove {
		t.Error("explicit canPlayerMove=false must be kept")
	}
	if tok.Scale != 2.5 || tok.Opacity != 0.25 || tok.Rotation != 90 || tok.Size != 80 {
		t.Errorf("explicit numerics not preserved: %+v", tok)
	}
	if tok.SizeType != SizeHuge {
		t.Errorf("sizeType = %q, want huge", tok.SizeType)
	}
	if tok.BorderColor != "border-red" {
		t.Errorf("borderColor = %q, want border-red", tok.BorderColor)
	}
}

// TestDefaultingIdempotence verifies decode-encode-decode is a fixed point.
func TestDefaultingIdempotence(t *testing.T) {
	raw := []byte(`[{"id":"t1","position":{"top":1,"left":2},"hidden":true},{"id":"t2","ownerId":"u1","scale":3}]`)

	first, err := DecodeList(raw)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	encoded, err := EncodeList(first)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := DecodeList(encoded)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("defaulting is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDecodeListEmpty(t *testing.T) {
	tokens, err := DecodeList(nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("expected empty collection, got %d tokens", len(tokens))
	}

	tokens, err = DecodeList([]byte(`[]`))
	if err != nil {
		t.Fatalf("decode empty array: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("expected empty collection, got %d tokens", len(tokens))
	}
}

func TestDecodeListMalformed(t *testing.T) {
	_, err := DecodeList([]byte(`{"not":"a list"}`))
	if apperrors.CodeOf(err) != apperrors.CodeTokenListMalformed {
		t.Fatalf("expected TOKEN_LIST_MALFORMED, got %v", err)
	}
}

// TestEncodeEmitsAllFields ensures serialized tokens are default-free for
// consumers: every field present, nullable refs emitted as null.
func TestEncodeEmitsAllFields(t *testing.T) {
	data, err := EncodeList([]Token{Normalize(Token{ID: "t1", CanPlayerMove: true})})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var generic []map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	for _, field := range []string{
		"id", "src", "alt", "name", "position", "borderColor", "canPlayerMove",
		"ownerId", "characterId", "characterType", "hidden", "locked",
		"scale", "rotation", "opacity", "tokenSize", "sizeType",
	} {
		if _, ok := generic[0][field]; !ok {
			t.Errorf("field %q missing from wire payload", field)
		}
	}
	if string(generic[0]["ownerId"]) != "null" {
		t.Errorf("ownerId = %s, want null", generic[0]["ownerId"])
	}
}

func TestFilterForViewerGMSeesEverything(t *testing.T) {
	tokens := []Token{
		{ID: "visible"},
		{ID: "hidden", Hidden: true},
		{ID: "owned-hidden", Hidden: true, OwnerID: strptr("p1")},
	}

	got := FilterForViewer(tokens, Viewer{UserID: "gm", GM: true})
	if len(got) != 3 {
		t.Fatalf("GM view has %d tokens, want 3", len(got))
	}
}

func TestFilterForViewerPlayer(t *testing.T) {
	tokens := []Token{
		{ID: "visible"},
		{ID: "enemy-hidden", Hidden: true},
		{ID: "mine-hidden", Hidden: true, OwnerID: strptr("p1")},
		{ID: "theirs-hidden", Hidden: true, OwnerID: strptr("p2")},
	}

	got := FilterForViewer(tokens, Viewer{UserID: "p1"})
	ids := make([]string, 0, len(got))
	for _, tok := range got {
		ids = append(ids, tok.ID)
	}
	want := []string{"visible", "mine-hidden"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("player view = %v, want %v", ids, want)
	}
}

func TestFilterForViewerExcludesHiddenEntirely(t *testing.T) {
	tokens := []Token{{ID: "secret", Hidden: true, OwnerID: strptr("p2"), Position: Position{Top: 42, Left: 17}}}

	got := FilterForViewer(tokens, Viewer{UserID: "p1"})
	if len(got) != 0 {
		t.Fatalf("hidden foreign token leaked into player view: %+v", got)
	}
}

func TestValidateList(t *testing.T) {
	tcs := []struct {
		name   string
		tokens []Token
		code   apperrors.Code
	}{
		{"ok", []Token{{ID: "t1"}, {ID: "t2", SizeType: SizeLarge, Opacity: 0.5}}, ""},
		{"empty id", []Token{{ID: " "}}, apperrors.CodeTokenIDEmpty},
		{"duplicate id", []Token{{ID: "t1"}, {ID: "t1"}}, apperrors.CodeTokenListMalformed},
		{"bad size type", []Token{{ID: "t1", SizeType: "gigantic"}}, apperrors.CodeTokenInvalidSize},
		{"opacity out of range", []Token{{ID: "t1", Opacity: 1.5}}, apperrors.CodeValidationFailed},
		{"negative size", []Token{{ID: "t1", Size: -4}}, apperrors.CodeTokenInvalidSize},
	}
	for _, tc := range tcs {
		err := ValidateList(tc.tokens)
		if tc.code == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if apperrors.CodeOf(err) != tc.code {
			t.Errorf("%s: code = %v, want %v", tc.name, apperrors.CodeOf(err), tc.code)
		}
	}
}

func TestMovableBy(t *testing.T) {
	owned := Token{ID: "t1", OwnerID: strptr("p1"), CanPlayerMove: true}
	if !MovableBy(owned, "p1") {
		t.Error("owner should move an unlocked movable token")
	}
	if MovableBy(owned, "p2") {
		t.Error("non-owner must not move the token")
	}

	locked := owned
	locked.Locked = true
	if MovableBy(locked, "p1") {
		t.Error("locked token must not be movable")
	}

	pinned := owned
	pinned.CanPlayerMove = false
	if MovableBy(pinned, "p1") {
		t.Error("canPlayerMove=false must block player moves")
	}

	generic := Token{ID: "t2", CanPlayerMove: true}
	if MovableBy(generic, "p1") {
		t.Error("GM-owned token must not be player-movable")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tok := Normalize(Token{ID: "t1"})
	if !reflect.DeepEqual(tok, Normalize(tok)) {
		t.Fatal("Normalize must be idempotent")
	}
}

func TestFindByID(t *testing.T) {
	tokens := []Token{{ID: "a"}, {ID: "b"}}
	if got := FindByID(tokens, "b"); got != 1 {
		t.Fatalf("FindByID(b) = %d, want 1", got)
	}
	if got := FindByID(tokens, "missing"); got != -1 {
		t.Fatalf("FindByID(missing) = %d, want -1", got)
	}
}
