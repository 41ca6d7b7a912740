// Package ddtscan walks the sent mailbox for PDF attachments and infers which dossiers
// had their technical diagnostic file (DDT) sent.
//
// The scan is resumable: every processed message id and every recorded filename is kept
// in a checkpoint document (historique_scan.json), so a second run only looks at new
// messages. Run observes its context between messages and saves the checkpoint even
// when cancelled.
package ddtscan
