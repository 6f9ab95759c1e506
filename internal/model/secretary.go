package model

import "strings"

// Bonus is one stat boost granted by a secretary.
type Bonus struct {
	Name  string
	Value string
}

// SecretaryRole describes a secretary position.
type SecretaryRole struct {
	Kind    SecretaryKind
	Icon    string
	Bonuses []Bonus
}

// Secretaries is the fixed roster, in display order.
var Secretaries = []SecretaryRole{
	{Kind: SecretaryStrategy, Icon: "🏥", Bonuses: []Bonus{{"Hospital Capacity", "+20%"}, {"Unit Healing", "+20%"}}},
	{Kind: SecretaryDefense, Icon: "⚔️", Bonuses: []Bonus{{"Unit Training Cap", "+20%"}, {"Training Speed", "+20%"}}},
	{Kind: SecretaryDevelopment, Icon: "🏗️", Bonuses: []Bonus{{"Construction Speed", "+50%"}, {"Research Speed", "+25%"}}},
	{Kind: SecretaryScience, Icon: "🔬", Bonuses: []Bonus{{"Research Speed", "+50%"}, {"Construction Speed", "+25%"}}},
	{Kind: SecretaryInterior, Icon: "🏘️", Bonuses: []Bonus{{"Food", "+100%"}, {"Iron", "+100%"}, {"Coin", "+100%"}}},
}

// LookupSecretary matches a full role name or its short form ("science").
func LookupSecretary(s string) (SecretaryRole, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SecretaryRole{}, false
	}
	for _, r := range Secretaries {
		full := strings.ToLower(string(r.Kind))
		if s == full || s == strings.TrimPrefix(full, "secretary of ") {
			return r, true
		}
	}
	return SecretaryRole{}, false
}

// Short drops the "Secretary of " prefix.
func (k SecretaryKind) Short() string {
	return strings.TrimPrefix(string(k), "Secretary of ")
}
