// Package google provides installed-application OAuth2 for the Gmail API.
//
// The client secret comes from credentials.json as downloaded from the Google Cloud
// console. The user token is kept in token.json and rewritten whenever the oauth2
// library refreshes it, so a later run starts from the refreshed token.
package google
