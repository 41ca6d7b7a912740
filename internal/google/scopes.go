package google

import (
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the scopes requested for the DDT scan. Only attachment
// metadata of sent messages is read.
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
}
