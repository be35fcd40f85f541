package bankfeed

// Request and response payloads for the Plaid endpoints this client uses.
// Field names follow Plaid's JSON API.

type plaidAuth struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type linkTokenCreateRequest struct {
	plaidAuth
	ClientName   string        `json:"client_name"`
	Language     string        `json:"language"`
	CountryCodes []string      `json:"country_codes"`
	User         linkTokenUser `json:"user"`
	Products     []string      `json:"products"`
	Webhook      string        `json:"webhook,omitempty"`
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenCreateResponse struct {
	LinkToken string `json:"link_token"`
	RequestID string `json:"request_id"`
}

type itemPublicTokenExchangeRequest struct {
	plaidAuth
	PublicToken string `json:"public_token"`
}

type itemPublicTokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

type itemGetRequest struct {
	plaidAuth
	AccessToken string `json:"access_token"`
}

type itemGetResponse struct {
	Item struct {
		ItemID          string `json:"item_id"`
		InstitutionID   string `json:"institution_id"`
		InstitutionName string `json:"institution_name"`
	} `json:"item"`
	RequestID string `json:"request_id"`
}

type itemRemoveRequest struct {
	plaidAuth
	AccessToken string `json:"access_token"`
}

type itemRemoveResponse struct {
	RequestID string `json:"request_id"`
}

// plaidErrorResponse is Plaid's error envelope
type plaidErrorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id"`
}
