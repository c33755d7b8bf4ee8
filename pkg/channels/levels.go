package channels

// HierarchyLevels are the levels every guard gets a support channel with, in
// display order. The names feed channel ids and must not change.
var HierarchyLevels = []string{
	"Owners",
	"Management Team",
	"Dispatch",
	"Operations Team",
	"Supervision Team",
	"Training Team",
}

// CompanyChannels are the broadcast channels shared by all staff, in display
// order. The names feed channel ids and must not change.
var CompanyChannels = []string{
	"Owners",
	"Dispatch",
	"Management",
	"Operations",
	"Supervision",
	"Training",
	"Lead",
	"All Guards",
}
