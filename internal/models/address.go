// Copyright (C) 2025  The Mailroom Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidAddressFormat is used for addresses of zero length or without
	// an "@" sign.
	ErrInvalidAddressFormat = errors.New("address: invalid format")

	// ErrPathTooLong is used for addresses, that are too long or contain a path
	// that is too long according to RFC#5321.
	ErrPathTooLong = errors.New("address: path too long")

	// ZeroAddress is an invalid, zero value Address.
	ZeroAddress Address
)

// Address is a string of the form "local-part@domain". Matching and thread
// grouping always operate on the normalized form, while display surfaces keep
// whatever the provider sent.
type Address struct {
	raw string
	at  int
}

// ParseNormalized calls ParseUnicode and transforms the local-part using
// NormalizeLocalPart. The result is the canonical identity of a correspondent
// and the only form that may be compared against alias and domain registries.
func ParseNormalized(raw string) (Address, error) {
	addr, err := ParseUnicode(raw)
	if err != nil {
		return addr, err
	}

	localPart := NormalizeLocalPart(addr.LocalPart())
	if localPart != addr.LocalPart() {
		addr.raw = localPart + "@" + addr.Domain()
		addr.at = len(localPart)
	}

	return addr, nil
}

// ParseUnicode calls Parse and transforms the domain part of the address using
// DomainToUnicode.
func ParseUnicode(raw string) (Address, error) {
	addr, err := Parse(raw)
	if err != nil {
		return addr, err
	}

	domain, err := DomainToUnicode(addr.Domain())
	if err != nil {
		return addr, err
	}

	if domain != addr.Domain() {
		addr.raw = addr.LocalPart() + "@" + domain
	}

	return addr, nil
}

// Parse splits an address at the "@" sign and checks for size limits.
func Parse(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return ZeroAddress, ErrInvalidAddressFormat
	}

	at := strings.LastIndex(raw, "@")
	if at < 0 {
		return ZeroAddress, ErrInvalidAddressFormat
	}

	// see RFC#5321 4.5.3.1
	if at > 64 || len(raw)-at > 256 || len(raw) > 256 {
		return ZeroAddress, ErrPathTooLong
	}

	return Address{raw, at}, nil
}

// String returns the raw address provided to Parse.
func (a Address) String() string {
	return a.raw
}

// IsZero reports whether a is the zero value and therefore not a usable
// address.
func (a Address) IsZero() bool {
	return a.raw == ""
}

// Normalized returns a copy of a with a normalized local-part.
func (a Address) Normalized() Address {
	localPart := a.LocalPart()
	localPart = NormalizeLocalPart(localPart)

	return Address{
		raw: localPart + "@" + a.Domain(),
		at:  len(localPart),
	}
}

// comparableKey is the fully folded identity used for set membership.
func (a Address) comparableKey() string {
	return NormalizeLocalPart(a.LocalPart()) + "@" + fold.String(a.Domain())
}

// LocalPart returns the part left of the "@" sign (exclusive).
func (a Address) LocalPart() string {
	return a.raw[:a.at]
}

// Domain return the part right of the "@" sign (exclusive).
func (a Address) Domain() string {
	return a.raw[a.at+1:]
}

// Scan implements the sql.Scanner interface.
func (a *Address) Scan(src interface{}) error {
	s, err := driver.String.ConvertValue(src)
	if err != nil {
		return err
	}

	v, err := Parse(s.(string))
	if err != nil {
		return err
	}

	*a = v
	return nil
}

// Value implements the sql/driver.Valuer interface.
func (a Address) Value() (driver.Value, error) {
	return a.raw, nil
}

// AddressList is a set of addresses stored as a single json column.
type AddressList []Address

// Strings returns the addresses as raw strings in list order.
func (l AddressList) Strings() []string {
	s := make([]string, len(l))
	for i, addr := range l {
		s[i] = addr.String()
	}

	return s
}

// Contains reports whether the list holds an address equal to addr after
// normalization of both sides. Domains are compared case-folded; punycode
// forms must be converted before the list is built.
func (l AddressList) Contains(addr Address) bool {
	needle := addr.comparableKey()

	for _, candidate := range l {
		if candidate.comparableKey() == needle {
			return true
		}
	}

	return false
}

// Scan implements the sql.Scanner interface.
func (l *AddressList) Scan(src interface{}) error {
	s, err := driver.String.ConvertValue(src)
	if err != nil {
		return err
	}

	var raw []string
	if err := json.Unmarshal([]byte(s.(string)), &raw); err != nil {
		return err
	}

	list := make(AddressList, 0, len(raw))
	for _, r := range raw {
		addr, err := Parse(r)
		if err != nil {
			return err
		}

		list = append(list, addr)
	}

	*l = list
	return nil
}

// Value implements the sql/driver.Valuer interface.
func (l AddressList) Value() (driver.Value, error) {
	b, err := json.Marshal(l.Strings())
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

// DomainToUnicode normalizes a punycode domain to unicode and applies the
// NFC normal form.
func DomainToUnicode(domain string) (string, error) {
	mapped, err := idna.Lookup.ToUnicode(domain)
	if err != nil {
		return domain, err
	}

	return norm.NFC.String(mapped), nil
}

// DomainToASCII transforms a unicode domain to punycode.
func DomainToASCII(domain string) (string, error) {
	mapped, err := DomainToUnicode(domain)
	if err != nil {
		return domain, err
	}

	return idna.Lookup.ToASCII(mapped)
}

// fold is a cases.Caser to fold unicode text. Folding is more or less
// "compatible" lowercase.
var fold = cases.Fold()

// NormalizeLocalPart applies several rules to make the local-part of addresses
// comparable. Normalization is for correlation only. Outbound addresses may
// not be altered.
//
// 1) The local-part is case-folded so that "user" and "USER" are considered equal.
// 2) The local-part is normalized using NFKC so that equal looking runes are considered equal.
// 3) The local-part has the suffix trimmed. A suffix is everything after the first '+' rune.
func NormalizeLocalPart(localPart string) string {
	folded := fold.String(localPart)
	normalized := norm.NFKC.String(folded)

	suffixIndex := strings.IndexRune(normalized, '+')
	if suffixIndex < 0 {
		return normalized
	}

	return normalized[:suffixIndex]
}
