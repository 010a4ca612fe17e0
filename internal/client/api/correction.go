package api

import (
	"context"
	"fmt"

	"github.com/styleguard/styleguard/internal/models"
)

// CorrectionRequest is the JSON payload for submitting text.
type CorrectionRequest struct {
	OriginalText string `json:"original_text"`
}

// CreateCorrection submits text for correction and returns the stored
// record.
func (c *Client) CreateCorrection(ctx context.Context, text string) (models.Correction, error) {
	var correction models.Correction
	req := CorrectionRequest{OriginalText: text}
	if err := c.postJSON(ctx, "/corrections/", req, &correction, true); err != nil {
		return models.Correction{}, err
	}
	return correction, nil
}

// Corrections fetches one page of the user's correction history,
// newest first.
func (c *Client) Corrections(ctx context.Context, skip, limit int) ([]models.Correction, error) {
	var corrections []models.Correction
	path := fmt.Sprintf("/corrections/?skip=%d&limit=%d", skip, limit)
	if err := c.getJSON(ctx, path, &corrections); err != nil {
		return nil, err
	}
	return corrections, nil
}

// Correction fetches a single correction by id.
func (c *Client) Correction(ctx context.Context, id int) (models.Correction, error) {
	var correction models.Correction
	if err := c.getJSON(ctx, fmt.Sprintf("/corrections/%d", id), &correction); err != nil {
		return models.Correction{}, err
	}
	return correction, nil
}

// DeleteCorrection removes a correction server-side.
func (c *Client) DeleteCorrection(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/corrections/%d", id))
}
