package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// httpClient is reused for file downloads to avoid creating new clients per request
var httpClient = resty.New().SetDebug(false).SetTimeout(30 * time.Second)

func downloadFileID(
	ctx context.Context,
	getFileDirectURL func(fileId string) (string, error),
	fileID string,
) ([]byte, error) {
	log.Info().Str("fileID", fileID).Msg("downloading file id")
	url, err := getFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}
	res, err := httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("request failed: %v", res.Status())
	}

	return res.Body(), nil
}

// largestPhoto returns the biggest rendition Telegram offers.
func largestPhoto(sizes []tgbotapi.PhotoSize) (tgbotapi.PhotoSize, bool) {
	if len(sizes) == 0 {
		return tgbotapi.PhotoSize{}, false
	}
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best, true
}
