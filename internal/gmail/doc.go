// Package gmail reads sent messages and their attachment filenames through the Gmail API.
//
// Client satisfies ddtscan.MessageSource. Only message metadata and the MIME tree are
// read; attachment bodies are never downloaded.
//
// Example usage:
//
//	conf, _ := google.LoadConfig("credentials.json")
//	client, err := gmail.NewClient(ctx, conf, google.NewTokenStore("token.json"))
//	if err != nil {
//	    return err
//	}
//	ids, next, err := client.ListMessageIDs(ctx, "has:attachment filename:pdf", []string{"SENT"}, "")
package gmail
