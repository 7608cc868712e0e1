package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	NameCharLimit           = 40
	DescriptionCharLimit    = 200
	InvitationNoteCharLimit = 1000
	MaximumBudget           = uint64(100_000)

	UserNameCharLimit     = 40
	PhoneCharLimit        = 20
	EmailCharLimit        = 254
	DeliveryInfoCharLimit = 1000
	InterestsCharLimit    = 1000
	WishNameCharLimit     = 100
	WishLinkCharLimit     = 2000
)

// Field names used in failures. They match the JSON names of the API payloads.
const (
	FieldName              = "name"
	FieldDescription       = "description"
	FieldInvitationNote    = "invitationNote"
	FieldInvitationCode    = "invitationCode"
	FieldGiftExchangeDate  = "giftExchangeDate"
	FieldGiftMaximumBudget = "giftMaximumBudget"
	FieldMinUsersLimit     = "minUsersLimit"
	FieldMaxUsersLimit     = "maxUsersLimit"
	FieldUsers             = "users"

	FieldRoomClosedOn      = "room.ClosedOn"
	FieldRoomMinUsersLimit = "room.MinUsersLimit"
	FieldUserID            = "user.Id"
	FieldUserCode          = "user.UserCode"
	FieldUserIsAdmin       = "user.IsAdmin"
	FieldUserRoomID        = "user.RoomId"
)

type fieldRule func(s *RoomSnapshot) []FieldError

// roomRules lists the rules in the order failures are reported for a full pass.
var roomRules = []struct {
	field string
	rule  fieldRule
}{
	{FieldName, validateName},
	{FieldDescription, maxLength(FieldDescription, "Description", DescriptionCharLimit, func(s *RoomSnapshot) string { return s.Description })},
	{FieldInvitationNote, maxLength(FieldInvitationNote, "Invitation note", InvitationNoteCharLimit, func(s *RoomSnapshot) string { return s.InvitationNote })},
	{FieldInvitationCode, validateInvitationCode},
	{FieldGiftExchangeDate, validateGiftExchangeDate},
	{FieldGiftMaximumBudget, validateBudget},
	{FieldMinUsersLimit, validateMinUsers},
	{FieldMaxUsersLimit, validateMaxUsers},
	{FieldUsers, validateUsers},
}

// validateRoom runs the full rule set, or only the rules for the named fields
// when any are given. The returned slice is empty when the room is valid.
func validateRoom(s *RoomSnapshot, fields ...string) []FieldError {
	var selected map[string]bool
	if len(fields) > 0 {
		selected = make(map[string]bool, len(fields))
		for _, f := range fields {
			selected[f] = true
		}
	}

	var errs []FieldError
	for _, r := range roomRules {
		if selected != nil && !selected[r.field] {
			continue
		}
		errs = append(errs, r.rule(s)...)
	}
	return errs
}

func validateName(s *RoomSnapshot) []FieldError {
	if strings.TrimSpace(s.Name) == "" {
		return []FieldError{{FieldName, "Name is required."}}
	}
	if utf8.RuneCountInString(s.Name) > NameCharLimit {
		return []FieldError{{FieldName, fmt.Sprintf("Name must not exceed %d characters.", NameCharLimit)}}
	}
	return nil
}

func maxLength(field, label string, limit int, get func(*RoomSnapshot) string) fieldRule {
	return func(s *RoomSnapshot) []FieldError {
		if utf8.RuneCountInString(get(s)) > limit {
			return []FieldError{{field, fmt.Sprintf("%s must not exceed %d characters.", label, limit)}}
		}
		return nil
	}
}

func validateInvitationCode(s *RoomSnapshot) []FieldError {
	if strings.TrimSpace(s.InvitationCode) == "" {
		return []FieldError{{FieldInvitationCode, "Invitation code is required."}}
	}
	return nil
}

func validateGiftExchangeDate(s *RoomSnapshot) []FieldError {
	if s.GiftExchangeDate.IsZero() {
		return []FieldError{{FieldGiftExchangeDate, "Gift exchange date is required."}}
	}
	return nil
}

func validateBudget(s *RoomSnapshot) []FieldError {
	if s.GiftMaximumBudget > MaximumBudget {
		return []FieldError{{FieldGiftMaximumBudget, fmt.Sprintf("Gift maximum budget must not exceed %d.", MaximumBudget)}}
	}
	return nil
}

func validateMinUsers(s *RoomSnapshot) []FieldError {
	if s.MinUsersLimit > s.MaxUsersLimit {
		return []FieldError{{FieldMinUsersLimit, "Minimum users limit must not exceed maximum users limit."}}
	}
	return nil
}

func validateMaxUsers(s *RoomSnapshot) []FieldError {
	if s.MaxUsersLimit == 0 {
		return []FieldError{{FieldMaxUsersLimit, "Maximum users limit must be positive."}}
	}
	return nil
}

func validateUsers(s *RoomSnapshot) []FieldError {
	var errs []FieldError
	if uint(len(s.Users)) > s.MaxUsersLimit {
		errs = append(errs, FieldError{FieldUsers, fmt.Sprintf("The room cannot contain more than %d users.", s.MaxUsersLimit)})
	}
	for i, u := range s.Users {
		errs = append(errs, validateUser(fmt.Sprintf("users[%d]", i), u, s.MaxWishesLimit)...)
	}
	return errs
}

func validateUser(prefix string, u User, maxWishes uint) []FieldError {
	var errs []FieldError
	required := func(field, label, value string, limit int) {
		switch {
		case strings.TrimSpace(value) == "":
			errs = append(errs, FieldError{prefix + "." + field, label + " is required."})
		case utf8.RuneCountInString(value) > limit:
			errs = append(errs, FieldError{prefix + "." + field, fmt.Sprintf("%s must not exceed %d characters.", label, limit)})
		}
	}
	optional := func(field, label, value string, limit int) {
		if utf8.RuneCountInString(value) > limit {
			errs = append(errs, FieldError{prefix + "." + field, fmt.Sprintf("%s must not exceed %d characters.", label, limit)})
		}
	}

	required("firstName", "First name", u.FirstName, UserNameCharLimit)
	required("lastName", "Last name", u.LastName, UserNameCharLimit)
	required("phone", "Phone", u.Phone, PhoneCharLimit)
	optional("email", "Email", u.Email, EmailCharLimit)
	optional("deliveryInfo", "Delivery info", u.DeliveryInfo, DeliveryInfoCharLimit)
	optional("interests", "Interests", u.Interests, InterestsCharLimit)

	if u.WantSurprise && strings.TrimSpace(u.Interests) == "" {
		errs = append(errs, FieldError{prefix + ".interests", "Interests are required when a surprise gift is wanted."})
	}
	if uint(len(u.WishList)) > maxWishes {
		errs = append(errs, FieldError{prefix + ".wishList", fmt.Sprintf("Wish list cannot contain more than %d items.", maxWishes)})
	}
	for i, w := range u.WishList {
		wishPrefix := fmt.Sprintf("%s.wishList[%d]", prefix, i)
		if strings.TrimSpace(w.Name) == "" {
			errs = append(errs, FieldError{wishPrefix + ".name", "Wish name is required."})
		} else if utf8.RuneCountInString(w.Name) > WishNameCharLimit {
			errs = append(errs, FieldError{wishPrefix + ".name", fmt.Sprintf("Wish name must not exceed %d characters.", WishNameCharLimit)})
		}
		if utf8.RuneCountInString(w.InfoLink) > WishLinkCharLimit {
			errs = append(errs, FieldError{wishPrefix + ".infoLink", fmt.Sprintf("Wish link must not exceed %d characters.", WishLinkCharLimit)})
		}
	}
	return errs
}

// validateSingleAdmin checks the admin invariant of a room restored from storage.
func validateSingleAdmin(users []User) []FieldError {
	if len(users) == 0 {
		return nil
	}
	admins := 0
	for _, u := range users {
		if u.IsAdmin {
			admins++
		}
	}
	if admins != 1 {
		return []FieldError{{FieldUsers, "The room should contain only one admin."}}
	}
	return nil
}
