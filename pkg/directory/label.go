package directory

import (
	"strings"

	"guardcomms/pkg/models"
)

// DisplayName is the label viewerID sees for c. Support channels read as the
// bare level name for the guard who owns them and as
// "#<badge> <guard name> – <level>" for everyone else; a guard without a
// badge drops the "#<badge> " part. Every other conversation keeps its
// stored name.
func DisplayName(c models.Conversation, viewerID string) string {
	if c.Subkind != models.SubkindSupport {
		return c.DisplayName
	}
	if viewerID != "" && viewerID == c.Metadata[models.MetaGuardID] {
		return c.DisplayName
	}
	level := c.Metadata[models.MetaLevel]
	if level == "" {
		level = c.DisplayName
	}
	name := c.Metadata[models.MetaGuardDisplayName]
	if name == "" {
		name = c.Metadata[models.MetaGuardID]
	}

	var b strings.Builder
	if badge := c.Metadata[models.MetaGuardBadge]; badge != "" {
		b.WriteString("#")
		b.WriteString(badge)
		b.WriteString(" ")
	}
	b.WriteString(name)
	b.WriteString(" – ")
	b.WriteString(level)
	return b.String()
}
