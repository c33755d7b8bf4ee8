package channels

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	supportPrefix = "support"
	companyPrefix = "company"
	peerPrefix    = "peer"
	missionPrefix = "mission"
)

var (
	reStrip  = regexp.MustCompile(`[^\w\s-]`)
	reSpaces = regexp.MustCompile(`\s+`)
	reDashes = regexp.MustCompile(`-+`)
)

// SupportChannelID is the id of the support channel between a guard and a
// hierarchy level.
func SupportChannelID(level, userID string) string {
	return supportPrefix + ":" + slugify(level) + ":" + userID
}

// CompanyChannelID is the id of the staff-wide channel with the given name.
func CompanyChannelID(name string) string {
	return companyPrefix + ":" + slugify(name)
}

// PeerChannelID is the id of a team's peer channel.
func PeerChannelID(teamID string) string {
	return peerPrefix + ":" + teamID
}

// MissionChannelID is the id of the channel linked to a mission.
func MissionChannelID(missionID string) string {
	return missionPrefix + ":" + missionID
}

// slugify lowercases s and reduces it to letters, digits and single hyphens.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = reStrip.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, "-")
	s = reDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
