package chat

import (
	"strings"
	"unicode"
)

// separator joins the two participant identifiers of a canonical id. It can
// never occur inside a valid identifier.
const separator = "--"

// ValidParticipant reports whether id is a well-formed participant identifier.
func ValidParticipant(id string) bool {
	if id == "" || strings.Contains(id, separator) || strings.ContainsRune(id, '/') {
		return false
	}
	if strings.HasPrefix(id, "-") || strings.HasSuffix(id, "-") {
		return false
	}
	return strings.IndexFunc(id, unicode.IsSpace) < 0
}

// CanonicalID derives the conversation key of a pair of participants.
// CanonicalID(a, b) == CanonicalID(b, a).
func CanonicalID(a, b string) (string, error) {
	first, second, err := orderPair(a, b)
	if err != nil {
		return "", err
	}
	return first + separator + second, nil
}

// Participants splits a canonical id back into its sorted pair.
func Participants(id string) ([2]string, error) {
	a, b, ok := strings.Cut(id, separator)
	if !ok {
		return [2]string{}, newError(KindInvalidParticipants, "participants", "%q is not a conversation id", id)
	}
	first, second, err := orderPair(a, b)
	if err != nil {
		return [2]string{}, err
	}
	if first != a {
		return [2]string{}, newError(KindInvalidParticipants, "participants", "%q is not in canonical order", id)
	}
	return [2]string{first, second}, nil
}

func orderPair(a, b string) (string, string, error) {
	if !ValidParticipant(a) || !ValidParticipant(b) {
		return "", "", newError(KindInvalidParticipants, "canonical id", "malformed participant identifier")
	}
	if a == b {
		return "", "", newError(KindInvalidParticipants, "canonical id", "cannot start a conversation with yourself")
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}
