package domain

// OrgStatus is the scratch org status cached on an Org.
type OrgStatus string

// Org statuses. UNKNOWN until a scratch org check runs.
const (
	OrgStatusActive  OrgStatus = "ACTIVE"
	OrgStatusExpired OrgStatus = "EXPIRED"
	OrgStatusUnknown OrgStatus = "UNKNOWN"
	OrgStatusMissing OrgStatus = "MISSING"
)

// OrgField names a field readable through Org.GetField.
type OrgField string

// Org fields. Static ones come from the credential record, computed
// ones from the org's field cache.
const (
	OrgFieldAlias          OrgField = "alias"
	OrgFieldUsername       OrgField = "username"
	OrgFieldOrgID          OrgField = "orgId"
	OrgFieldInstanceURL    OrgField = "instanceUrl"
	OrgFieldLoginURL       OrgField = "loginUrl"
	OrgFieldDevHubUsername OrgField = "devHubUsername"
	OrgFieldIsDevHub       OrgField = "isDevHub"
	OrgFieldCreatedDate    OrgField = "createdDate"
	OrgFieldEdition        OrgField = "edition"
	OrgFieldExpirationDate OrgField = "expirationDate"
	OrgFieldStatus         OrgField = "status"
)

// OrgUsers is the Membership Record of one org id: the non-admin
// usernames sharing that org.
type OrgUsers struct {
	Usernames []string `json:"usernames"`
}

// Contains returns true if username is a member.
func (u OrgUsers) Contains(username string) bool {
	for _, name := range u.Usernames {
		if name == username {
			return true
		}
	}
	return false
}

// ScratchOrgRecord is one row of the dev hub's scratch org registry.
type ScratchOrgRecord struct {
	ScratchOrg     string `json:"ScratchOrg"`
	CreatedDate    string `json:"CreatedDate"`
	Edition        string `json:"Edition"`
	ExpirationDate string `json:"ExpirationDate"`
}

// APIVersion is one entry of the platform's version list.
type APIVersion struct {
	Version string `json:"version"`
	Label   string `json:"label,omitempty"`
	URL     string `json:"url,omitempty"`
}
