package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/secret-nick/internal/application"
	"github.com/example/secret-nick/internal/domain"
)

type wishDTO struct {
	Name     string `json:"name" validate:"required,max=100"`
	InfoLink string `json:"infoLink" validate:"omitempty,max=2000,url"`
}

type userRequest struct {
	FirstName    string    `json:"firstName" validate:"required,max=40"`
	LastName     string    `json:"lastName" validate:"required,max=40"`
	Phone        string    `json:"phone" validate:"required,max=20"`
	Email        string    `json:"email" validate:"omitempty,max=254,email"`
	DeliveryInfo string    `json:"deliveryInfo" validate:"max=1000"`
	WantSurprise bool      `json:"wantSurprise"`
	Interests    string    `json:"interests" validate:"max=1000"`
	WishList     []wishDTO `json:"wishList" validate:"dive"`
}

func (u userRequest) toDetails() application.UserDetails {
	wishes := make([]domain.Wish, 0, len(u.WishList))
	for _, w := range u.WishList {
		wishes = append(wishes, domain.Wish{Name: strings.TrimSpace(w.Name), InfoLink: strings.TrimSpace(w.InfoLink)})
	}
	return application.UserDetails{
		FirstName:    strings.TrimSpace(u.FirstName),
		LastName:     strings.TrimSpace(u.LastName),
		Phone:        strings.TrimSpace(u.Phone),
		Email:        strings.TrimSpace(u.Email),
		DeliveryInfo: strings.TrimSpace(u.DeliveryInfo),
		WantSurprise: u.WantSurprise,
		Interests:    strings.TrimSpace(u.Interests),
		WishList:     wishes,
	}
}

type roomDetailsRequest struct {
	Name              string `json:"name" validate:"required,max=40"`
	Description       string `json:"description" validate:"max=200"`
	InvitationNote    string `json:"invitationNote" validate:"max=1000"`
	GiftExchangeDate  string `json:"giftExchangeDate" validate:"required,giftdate"`
	GiftMaximumBudget uint64 `json:"giftMaximumBudget" validate:"lte=100000"`
}

type createRoomRequest struct {
	Room      *roomDetailsRequest `json:"room" validate:"required"`
	AdminUser *userRequest        `json:"adminUser" validate:"required"`
}

func (r createRoomRequest) toParams() application.CreateRoomParams {
	date, _ := parseGiftDate(r.Room.GiftExchangeDate)
	return application.CreateRoomParams{
		Room: application.RoomDetails{
			Name:              strings.TrimSpace(r.Room.Name),
			Description:       strings.TrimSpace(r.Room.Description),
			InvitationNote:    strings.TrimSpace(r.Room.InvitationNote),
			GiftExchangeDate:  date,
			GiftMaximumBudget: r.Room.GiftMaximumBudget,
		},
		Admin: r.AdminUser.toDetails(),
	}
}

// updateRoomRequest leaves limits to the room setters, which report the same field names.
type updateRoomRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	InvitationNote    *string `json:"invitationNote"`
	GiftExchangeDate  *string `json:"giftExchangeDate" validate:"omitempty,giftdate"`
	GiftMaximumBudget *uint64 `json:"giftMaximumBudget"`
}

func (r updateRoomRequest) toPatch() application.RoomPatch {
	patch := application.RoomPatch{
		Name:              r.Name,
		Description:       r.Description,
		InvitationNote:    r.InvitationNote,
		GiftMaximumBudget: r.GiftMaximumBudget,
	}
	if r.GiftExchangeDate != nil {
		if date, err := parseGiftDate(*r.GiftExchangeDate); err == nil {
			patch.GiftExchangeDate = &date
		}
	}
	return patch
}

type roomDTO struct {
	ID                uint64     `json:"id"`
	CreatedOn         time.Time  `json:"createdOn"`
	ModifiedOn        time.Time  `json:"modifiedOn"`
	ClosedOn          *time.Time `json:"closedOn,omitempty"`
	AdminID           uint64     `json:"adminId"`
	InvitationCode    string     `json:"invitationCode"`
	InvitationNote    string     `json:"invitationNote"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	GiftExchangeDate  string     `json:"giftExchangeDate"`
	GiftMaximumBudget uint64     `json:"giftMaximumBudget"`
	MinUsersLimit     uint       `json:"minUsersLimit"`
	MaxUsersLimit     uint       `json:"maxUsersLimit"`
	MaxWishesLimit    uint       `json:"maxWishesLimit"`
	IsFull            bool       `json:"isFull"`
}

func toRoomDTO(room *domain.Room) roomDTO {
	dto := roomDTO{
		ID:                room.ID(),
		CreatedOn:         room.CreatedOn(),
		ModifiedOn:        room.ModifiedOn(),
		InvitationCode:    room.InvitationCode(),
		InvitationNote:    room.InvitationNote(),
		Name:              room.Name(),
		Description:       room.Description(),
		GiftExchangeDate:  room.GiftExchangeDate().Format(time.DateOnly),
		GiftMaximumBudget: room.GiftMaximumBudget(),
		MinUsersLimit:     room.MinUsersLimit(),
		MaxUsersLimit:     room.MaxUsersLimit(),
		MaxWishesLimit:    room.MaxWishesLimit(),
		IsFull:            room.IsFull(),
	}
	if closed, ok := room.ClosedOn(); ok {
		dto.ClosedOn = &closed
	}
	if admin, ok := room.Admin(); ok {
		dto.AdminID = admin.ID
	}
	return dto
}

type createRoomResponse struct {
	Room     roomDTO `json:"room"`
	UserCode string  `json:"userCode"`
}

type userDTO struct {
	ID           uint64    `json:"id"`
	CreatedOn    time.Time `json:"createdOn"`
	ModifiedOn   time.Time `json:"modifiedOn"`
	RoomID       uint64    `json:"roomId"`
	IsAdmin      bool      `json:"isAdmin"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	UserCode     string    `json:"userCode,omitempty"`
	GiftToUserID *uint64   `json:"giftToUserId,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Email        *string   `json:"email,omitempty"`
	DeliveryInfo *string   `json:"deliveryInfo,omitempty"`
	WantSurprise *bool     `json:"wantSurprise,omitempty"`
	Interests    *string   `json:"interests,omitempty"`
	WishList     []wishDTO `json:"wishList,omitempty"`
}

func toUserDTO(caller, target domain.User) userDTO {
	v := application.VisibilityFor(caller, target)
	dto := userDTO{
		ID:         target.ID,
		CreatedOn:  target.CreatedOn,
		ModifiedOn: target.ModifiedOn,
		RoomID:     target.RoomID,
		IsAdmin:    target.IsAdmin,
		FirstName:  target.FirstName,
		LastName:   target.LastName,
	}
	if v.UserCode {
		dto.UserCode = target.AuthCode
	}
	if v.GiftRecipient && target.GiftRecipientUserID != nil {
		id := *target.GiftRecipientUserID
		dto.GiftToUserID = &id
	}
	if v.Contact {
		phone, email, delivery, interests, surprise := target.Phone, target.Email, target.DeliveryInfo, target.Interests, target.WantSurprise
		dto.Phone = &phone
		dto.Email = &email
		dto.DeliveryInfo = &delivery
		dto.Interests = &interests
		dto.WantSurprise = &surprise
		dto.WishList = make([]wishDTO, 0, len(target.WishList))
		for _, w := range target.WishList {
			dto.WishList = append(dto.WishList, wishDTO{Name: w.Name, InfoLink: w.InfoLink})
		}
	}
	return dto
}

func toUserDTOs(list application.UserList) []userDTO {
	out := make([]userDTO, 0, len(list.Users))
	for _, u := range list.Users {
		out = append(out, toUserDTO(list.Caller, u))
	}
	return out
}

func parseGiftDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// newValidator returns a validator reporting JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("giftdate", func(fl validator.FieldLevel) bool {
		_, err := parseGiftDate(fl.Field().String())
		return err == nil
	})
	return v
}

// validationErrors converts validator output into field scoped messages keyed
// by the JSON path of the offending value.
func validationErrors(err error) []domain.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []domain.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, domain.FieldError{Field: field, Message: validationMessage(fe)})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "max":
		return fmt.Sprintf("The %s field must not exceed %s characters.", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("The %s field must not exceed %s.", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("The %s field is not a valid e-mail address.", fe.Field())
	case "url":
		return fmt.Sprintf("The %s field is not a valid URL.", fe.Field())
	case "giftdate":
		return fmt.Sprintf("The %s field must be a date in YYYY-MM-DD format.", fe.Field())
	default:
		return fmt.Sprintf("The %s field is invalid.", fe.Field())
	}
}
