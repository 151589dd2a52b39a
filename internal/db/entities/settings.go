package entities

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// SettingsID is the primary key of the only settings row.
const SettingsID = "site"

// Settings is the site-wide configuration row
type Settings struct {
	ID                string    `json:"id" db:"id"`
	SiteName          string    `json:"site_name" db:"site_name"`
	SiteDescription   string    `json:"site_description" db:"site_description"`
	PostsPerPage      int       `json:"posts_per_page" db:"posts_per_page"`
	MailServer        string    `json:"mail_server" db:"mail_server"`
	MailPort          int       `json:"mail_port" db:"mail_port"`
	MailUseTLS        bool      `json:"mail_use_tls" db:"mail_use_tls"`
	MailUsername      string    `json:"mail_username" db:"mail_username"`
	MailPassword      string    `json:"-" db:"mail_password"`
	MailDefaultSender string    `json:"mail_default_sender" db:"mail_default_sender"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// HasMailPassword reports whether a mail secret is stored.
func (s *Settings) HasMailPassword() bool {
	return s.MailPassword != ""
}

// SettingsSchema defines the database schema for the settings singleton
var SettingsSchema = &interfaces.Schema{
	TableName: "settings",
	Fields: withTimestamps(map[string]interfaces.FieldSchema{
		"site_name":           {Type: "string", DefaultValue: ""},
		"site_description":    {Type: "string", DefaultValue: ""},
		"posts_per_page":      {Type: "int", DefaultValue: 10},
		"mail_server":         {Type: "string", DefaultValue: ""},
		"mail_port":           {Type: "int", DefaultValue: 587},
		"mail_use_tls":        {Type: "bool", DefaultValue: true},
		"mail_username":       {Type: "string", DefaultValue: ""},
		"mail_password":       {Type: "string", DefaultValue: ""},
		"mail_default_sender": {Type: "string", DefaultValue: ""},
	}),
}

// SettingsFromRecord maps the settings row.
func SettingsFromRecord(r interfaces.Record) *Settings {
	return &Settings{
		ID:                getString(r, "id"),
		SiteName:          getString(r, "site_name"),
		SiteDescription:   getString(r, "site_description"),
		PostsPerPage:      getInt(r, "posts_per_page"),
		MailServer:        getString(r, "mail_server"),
		MailPort:          getInt(r, "mail_port"),
		MailUseTLS:        getBool(r, "mail_use_tls"),
		MailUsername:      getString(r, "mail_username"),
		MailPassword:      getString(r, "mail_password"),
		MailDefaultSender: getString(r, "mail_default_sender"),
		CreatedAt:         getTime(r, "created_at"),
		UpdatedAt:         getTime(r, "updated_at"),
	}
}

// Record returns the writable columns of the settings row.
func (s *Settings) Record() interfaces.Record {
	return interfaces.Record{
		"site_name":           s.SiteName,
		"site_description":    s.SiteDescription,
		"posts_per_page":      s.PostsPerPage,
		"mail_server":         s.MailServer,
		"mail_port":           s.MailPort,
		"mail_use_tls":        s.MailUseTLS,
		"mail_username":       s.MailUsername,
		"mail_password":       s.MailPassword,
		"mail_default_sender": s.MailDefaultSender,
	}
}
