// Package roundrobin builds single round-robin pairings with the circle
// method. An odd roster gets one bye slot; whoever meets the bye sits out.
package roundrobin

import "errors"

const (
	MinPlayers = 2
	MaxPlayers = 6
)

var (
	ErrTooFewPlayers  = errors.New("at least two players are required")
	ErrTooManyPlayers = errors.New("groups larger than six players are not supported")
	ErrInvalidPlayer  = errors.New("player ids must be non-empty and unique")
)

type Pairing struct {
	Round   int
	Player1 string
	Player2 string
}

// Generate returns every pairing of players across n-1 rounds, where n is the
// roster size rounded up to even. Rounds are numbered from 1.
func Generate(players []string) ([]Pairing, error) {
	if len(players) < MinPlayers {
		return nil, ErrTooFewPlayers
	}
	if len(players) > MaxPlayers {
		return nil, ErrTooManyPlayers
	}
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p == "" {
			return nil, ErrInvalidPlayer
		}
		if _, ok := seen[p]; ok {
			return nil, ErrInvalidPlayer
		}
		seen[p] = struct{}{}
	}
	return circle(players), nil
}

// circle has no size limit; Generate applies the supported range.
func circle(players []string) []Pairing {
	slots := append([]string(nil), players...)
	if len(slots)%2 == 1 {
		slots = append(slots, "")
	}
	n := len(slots)
	half := n / 2

	left := append([]string(nil), slots[:half]...)
	right := make([]string, 0, half)
	for i := n - 1; i >= half; i-- {
		right = append(right, slots[i])
	}

	out := make([]Pairing, 0, (n-1)*half)
	for round := 1; round < n; round++ {
		for i := 0; i < half; i++ {
			a, b := left[i], right[i]
			if a == "" || b == "" {
				continue
			}
			out = append(out, Pairing{Round: round, Player1: a, Player2: b})
		}
		left, right = rotate(left, right)
	}
	return out
}

// rotate keeps left[0] fixed: the head of right moves to left[1] and the tail
// of left moves to the end of right.
func rotate(left, right []string) ([]string, []string) {
	moved := left[len(left)-1]
	left = left[:len(left)-1]
	head := right[0]
	right = append(right[1:], moved)

	at := 1
	if len(left) < at {
		at = len(left)
	}
	next := make([]string, 0, len(left)+1)
	next = append(next, left[:at]...)
	next = append(next, head)
	next = append(next, left[at:]...)
	return next, right
}
