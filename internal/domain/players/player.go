package players

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNicknameLength is counted in characters.
const MaxNicknameLength = 20

var ErrInvalidNickname = errors.New("invalid nickname")

type House string

const (
	Gryffindor House = "GR"
	Ravenclaw  House = "RA"
	Slytherin  House = "SL"
	Hufflepuff House = "HU"
)

// Houses lists every house in canonical order. Chart keys follow it.
var Houses = []House{Gryffindor, Ravenclaw, Slytherin, Hufflepuff}

func ParseHouse(raw string) (House, error) {
	h := House(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Houses {
		if h == known {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown house %q", raw)
}

// AssignHouse sorts a new player into a house by intra id, so the same
// login always lands in the same house.
func AssignHouse(intraID string) House {
	h := fnv.New32a()
	h.Write([]byte(intraID))
	return Houses[h.Sum32()%uint32(len(Houses))]
}

type Player struct {
	ID        uuid.UUID `json:"userId"`
	IntraID   string    `json:"intraId"`
	Nickname  string    `json:"nickname"`
	House     House     `json:"house"`
	CreatedAt time.Time `json:"createdAt"`
}

// New fills the defaults applied on account creation: a fresh id and the
// intra id doubling as nickname.
func New(intraID, nickname string, house House) (Player, error) {
	intraID = strings.TrimSpace(intraID)
	if intraID == "" {
		return Player{}, fmt.Errorf("intra id must be set")
	}
	if strings.TrimSpace(nickname) == "" {
		nickname = intraID
	}
	nickname, err := NormalizeNickname(nickname)
	if err != nil {
		return Player{}, err
	}
	return Player{
		ID:        uuid.New(),
		IntraID:   intraID,
		Nickname:  nickname,
		House:     house,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NormalizeNickname trims surrounding space and checks the length limit.
// Nicknames are unique across players; the store enforces that.
func NormalizeNickname(raw string) (string, error) {
	nick := strings.TrimSpace(raw)
	if nick == "" {
		return "", fmt.Errorf("%w: must not be empty", ErrInvalidNickname)
	}
	if utf8.RuneCountInString(nick) > MaxNicknameLength {
		return "", fmt.Errorf("%w: at most %d characters", ErrInvalidNickname, MaxNicknameLength)
	}
	return nick, nil
}
