package application

import "github.com/example/secret-nick/internal/domain"

// Visibility lists which parts of a user record the caller may see.
type Visibility struct {
	UserCode      bool
	GiftRecipient bool
	Contact       bool
}

// VisibilityFor applies the room's privacy rules. Everyone sees names and ids.
// The user code is shown on the caller's own record, or on every record for
// the admin. The drawn recipient is only shown to its giver. Contact details
// and wishes are shown on the caller's own record, on the caller's recipient
// and on every record for the admin.
func VisibilityFor(caller, target domain.User) Visibility {
	self := caller.ID == target.ID
	recipient := caller.GiftRecipientUserID != nil && *caller.GiftRecipientUserID == target.ID
	return Visibility{
		UserCode:      self || caller.IsAdmin,
		GiftRecipient: self,
		Contact:       self || recipient || caller.IsAdmin,
	}
}
