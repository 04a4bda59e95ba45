package types

import "time"

// ProfileID is the fixed primary key of the profile singleton in every store.
const ProfileID = "default"

// Profile holds the owner's name and contact details.
type Profile struct {
	FullName  string    `json:"full_name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Location  *string   `json:"location,omitempty"`
	LinkedIn  *string   `json:"linkedin,omitempty"`
	GitHub    *string   `json:"github,omitempty"`
	Website   *string   `json:"website,omitempty"`
	Telegram  *string   `json:"telegram,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileInput carries a profile update. Nil pointers leave the stored value unchanged.
type ProfileInput struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Location *string `json:"location,omitempty"`
	LinkedIn *string `json:"linkedin,omitempty"`
	GitHub   *string `json:"github,omitempty"`
	Website  *string `json:"website,omitempty"`
	Telegram *string `json:"telegram,omitempty"`
}

// Apply merges the input over p and returns the result.
func (in ProfileInput) Apply(p Profile) Profile {
	if in.FullName != nil {
		p.FullName = *in.FullName
	}
	p.Email = pick(in.Email, p.Email)
	p.Phone = pick(in.Phone, p.Phone)
	p.Location = pick(in.Location, p.Location)
	p.LinkedIn = pick(in.LinkedIn, p.LinkedIn)
	p.GitHub = pick(in.GitHub, p.GitHub)
	p.Website = pick(in.Website, p.Website)
	p.Telegram = pick(in.Telegram, p.Telegram)
	return p
}

// pick prefers the update; an explicit empty string clears the field.
func pick(update, current *string) *string {
	if update == nil {
		return current
	}
	return nilIfBlank(update)
}
