package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

// AttachmentInfo represents an attachment's metadata
type AttachmentInfo struct {
	MessageID    string
	PartID       string
	AttachmentID string
	Filename     string
	MimeType     string
	Size         int64
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// ListAttachments extracts every named part of a message
func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]*AttachmentInfo, error) {
	msg, err := c.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return attachments(msg), nil
}

// AttachmentFilenames returns the filename of every named part of a message, in MIME
// tree order.
func (c *Client) AttachmentFilenames(ctx context.Context, messageID string) ([]string, error) {
	infos, err := c.ListAttachments(ctx, messageID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, a := range infos {
		names[i] = a.Filename
	}
	return names, nil
}

func attachments(msg *gmail.Message) []*AttachmentInfo {
	var out []*AttachmentInfo
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if part.Filename == "" {
			return
		}
		info := &AttachmentInfo{
			MessageID: msg.Id,
			PartID:    part.PartId,
			Filename:  part.Filename,
			MimeType:  part.MimeType,
		}
		if part.Body != nil {
			info.AttachmentID = part.Body.AttachmentId
			info.Size = part.Body.Size
		}
		out = append(out, info)
	})
	return out
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
