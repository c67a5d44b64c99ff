// Copyright (c) 2021 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package id

import (
	"errors"
	"fmt"
	"strings"
)

// A UserID is a string starting with @ that references a specific user,
// e.g. @alice:example.com.
//
// https://spec.matrix.org/v1.11/appendices/#user-identifiers
type UserID string

func (userID UserID) String() string {
	return string(userID)
}

var (
	ErrInvalidUserID        = errors.New("invalid user ID")
	ErrNoncompliantLocalpart = errors.New("user ID localpart contains characters outside the allowed grammar")
	ErrEmptyLocalpart       = errors.New("user ID localpart is empty")
	ErrUserIDTooLong        = errors.New("user ID is longer than 255 bytes")
)

const maxUserIDLength = 255

// Parse splits the user ID into its localpart and server name without
// validating the localpart grammar. Only the overall @localpart:server shape
// is checked.
func (userID UserID) Parse() (localpart, serverName string, err error) {
	raw := string(userID)
	if len(raw) == 0 || raw[0] != '@' {
		return "", "", fmt.Errorf("%w: missing leading @", ErrInvalidUserID)
	}
	sigil := strings.IndexByte(raw, ':')
	if sigil == -1 {
		return "", "", fmt.Errorf("%w: missing server name separator", ErrInvalidUserID)
	}
	return raw[1:sigil], raw[sigil+1:], nil
}

// ParseAndValidate parses the user ID and additionally enforces the
// historical grammar and length constraints on the localpart.
func (userID UserID) ParseAndValidate() (localpart, serverName string, err error) {
	localpart, serverName, err = userID.Parse()
	if err != nil {
		return
	}
	if len(userID) > maxUserIDLength {
		return localpart, serverName, ErrUserIDTooLong
	}
	if len(localpart) == 0 {
		return localpart, serverName, ErrEmptyLocalpart
	}
	for _, r := range localpart {
		if !isLegacyLocalpartRune(r) {
			return localpart, serverName, ErrNoncompliantLocalpart
		}
	}
	return
}

func isLegacyLocalpartRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case strings.ContainsRune("-.=_/+", r):
		return true
	}
	return false
}

// ParseAndDecode parses the user ID and decodes a localpart that was
// produced with NewEncodedUserID, reversing the =-escaped byte encoding.
func (userID UserID) ParseAndDecode() (localpart, serverName string, err error) {
	encodedLocalpart, serverName, err := userID.ParseAndValidate()
	if err != nil {
		return "", serverName, err
	}
	decoded, err := decodeLocalpart(encodedLocalpart)
	if err != nil {
		return "", serverName, err
	}
	return decoded, serverName, nil
}

// NewUserID builds a user ID from a localpart and server name without
// encoding the localpart. Use this when the localpart is already known to
// be grammar-compliant.
func NewUserID(localpart, serverName string) UserID {
	return UserID(fmt.Sprintf("@%s:%s", localpart, serverName))
}

// NewEncodedUserID builds a user ID from an arbitrary localpart, escaping
// every uppercase letter as _ followed by its lowercase form and every other
// byte outside the allowed grammar as =hh (lowercase hex).
//
// https://spec.matrix.org/v1.11/appendices/#mapping-from-other-character-sets
func NewEncodedUserID(localpart, serverName string) UserID {
	return NewUserID(encodeLocalpart(localpart), serverName)
}

func encodeLocalpart(localpart string) string {
	var b strings.Builder
	for _, r := range []byte(localpart) {
		if isLegacyLocalpartRune(rune(r)) {
			b.WriteByte(r)
		} else if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteByte(r + ('a' - 'A'))
		} else {
			fmt.Fprintf(&b, "=%02x", r)
		}
	}
	return b.String()
}

func decodeLocalpart(encoded string) (string, error) {
	var b strings.Builder
	runes := []rune(encoded)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '=':
			if i+2 >= len(runes) {
				return "", fmt.Errorf("%w: truncated =hh escape", ErrInvalidUserID)
			}
			var value int
			_, err := fmt.Sscanf(string(runes[i+1:i+3]), "%02x", &value)
			if err != nil {
				return "", fmt.Errorf("%w: invalid =hh escape", ErrInvalidUserID)
			}
			b.WriteByte(byte(value))
			i += 2
		case '_':
			if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				b.WriteByte(byte(runes[i+1]) - ('a' - 'A'))
				i++
			} else {
				b.WriteRune('_')
			}
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String(), nil
}

// MatrixURI is a matrix: URI as defined by MSC2312/the Matrix appendices.
type MatrixURI struct {
	raw string
}

func (u MatrixURI) String() string {
	return u.raw
}

// URI returns the matrix: URI identifying this user, e.g.
// matrix:u/hello:example.com.
func (userID UserID) URI() MatrixURI {
	return MatrixURI{raw: "matrix:u/" + strings.TrimPrefix(string(userID), "@")}
}
