package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/rapidlisting/internal/imaging"
	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/rs/zerolog/log"
)

// userErrors are shown to the user as is.
var userErrors = []error{
	listing.ErrUnknownField,
	listing.ErrInvalidCondition,
	listing.ErrUnknownMode,
	imaging.ErrUnsupportedImage,
	imaging.ErrImageTooLarge,
	session.ErrNotSubmittable,
	session.ErrGenerationInFlight,
	session.ErrExtractionInFlight,
	session.ErrNoImages,
	session.ErrImageNotFound,
	session.ErrTooManyImages,
	session.ErrNoResult,
	session.ErrGenerationFailed,
	session.ErrExtractionFailed,
}

func isUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// replyErr reports a failed operation.
func (b *Bot) replyErr(us *UserSession, sess *session.Session, err error) {
	switch {
	case errors.Is(err, session.ErrNotSubmittable) && sess != nil:
		item := sess.Item()
		us.reply(MsgMissingFields, fieldLabels(item, listing.MissingFields(item)))
	case isUserError(err):
		us.reply(MsgFailed, escapeMarkdown(capitalize(err.Error())))
	default:
		us.replyWithError(err)
	}
}

func (b *Bot) handleText(ctx context.Context, us *UserSession, sess *session.Session, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, us, sess, text)
		return
	}
	if name, value, ok := parseFieldAssignment(text); ok {
		b.setField(us, sess, name, value)
		return
	}
	us.reply(MsgUnknownInput)
}

func (b *Bot) handleCommand(ctx context.Context, us *UserSession, sess *session.Session, text string) {
	command, args := parseCommand(text)
	switch command {
	case "/start", "/help":
		us.reply(MsgHelp)
	case "/auto":
		b.switchMode(us, sess, listing.ModeAutoParts)
	case "/general":
		b.switchMode(us, sess, listing.ModeGeneralItems)
	case "/set":
		if len(args) == 0 {
			us.reply(MsgSetUsage, fieldKeys(sess.Item()))
			return
		}
		b.setField(us, sess, args[0], strings.Join(args[1:], " "))
	case "/show":
		b.showItem(us, sess)
	case "/photos":
		b.showPhotos(us, sess)
	case "/removephoto":
		b.removePhoto(us, sess, args)
	case "/scan":
		b.startExtraction(ctx, us, sess)
	case "/generate":
		b.startGeneration(ctx, us, sess)
	case "/reset":
		sess.Reset()
		us.reply(MsgReset)
	default:
		us.reply(MsgUnknownInput)
	}
}

func (b *Bot) switchMode(us *UserSession, sess *session.Session, mode listing.Mode) {
	if err := sess.SetMode(mode); err != nil {
		b.replyErr(us, sess, err)
		return
	}
	us.reply(MsgModeSwitched, mode.Label())
	b.showItem(us, sess)
}

func (b *Bot) setField(us *UserSession, sess *session.Session, name, value string) {
	item := sess.Item()
	spec, ok := resolveField(item, name)
	if !ok {
		us.reply(MsgUnknownFieldFmt, escapeMarkdown(name), fieldKeys(item))
		return
	}

	if spec.Key == listing.FieldCondition {
		c, ok := matchCondition(value)
		if !ok {
			us.reply(MsgConditionOptions, conditionLabels())
			return
		}
		value = c.String()
	}

	hadModel := false
	if part, ok := item.(listing.AutoPartItem); ok {
		hadModel = part.Model != ""
	}

	if err := sess.SetField(spec.Key, value); err != nil {
		b.replyErr(us, sess, err)
		return
	}

	if value == "" {
		us.reply(MsgFieldCleared, spec.Label)
	} else {
		us.reply(MsgFieldSet, spec.Label, escapeMarkdown(value))
	}

	if spec.Key == listing.FieldMake {
		if hadModel {
			us.reply(MsgModelCleared)
		}
		if models := b.options.ModelsFor(value); len(models) > 0 {
			us.reply(MsgPopularModels, escapeMarkdown(strings.Join(models, ", ")))
		}
	}
}

func (b *Bot) showItem(us *UserSession, sess *session.Session) {
	item := sess.Item()
	lines := []string{fmt.Sprintf(MsgItemHeader, item.Mode().Label())}
	for _, spec := range item.Fields() {
		value, _ := item.Get(spec.Key)
		if value == "" {
			lines = append(lines, fmt.Sprintf(MsgFieldLineEmpty, spec.Label, spec.Key))
		} else {
			lines = append(lines, fmt.Sprintf(MsgFieldLine, spec.Label, spec.Key, escapeMarkdown(value)))
		}
	}
	lines = append(lines, "")
	if missing := listing.MissingFields(item); len(missing) > 0 {
		lines = append(lines, fmt.Sprintf(MsgMissingFields, fieldLabels(item, missing)))
	} else {
		lines = append(lines, MsgReadyToGenerate)
	}
	us.reply("%s", strings.Join(lines, "\n"))
}

func (b *Bot) showPhotos(us *UserSession, sess *session.Session) {
	images := sess.Images()
	if len(images) == 0 {
		us.reply(MsgNoPhotos)
		return
	}
	lines := []string{fmt.Sprintf(MsgPhotosHeader, countNoun(len(images), "photo"))}
	for i, img := range images {
		lines = append(lines, fmt.Sprintf(MsgPhotoLine, i+1, img.AddedAt.Format("15:04:05"), len(img.Data)/1024))
	}
	us.reply("%s", strings.Join(lines, "\n"))
}

func (b *Bot) removePhoto(us *UserSession, sess *session.Session, args []string) {
	if len(args) != 1 {
		us.reply(MsgRemovePhotoUsage)
		return
	}
	n, err := strconv.Atoi(args[0])
	images := sess.Images()
	if err != nil || n < 1 || n > len(images) {
		us.reply(MsgRemovePhotoUsage)
		return
	}
	if err := sess.RemoveImage(images[n-1].ID); err != nil {
		b.replyErr(us, sess, err)
		return
	}
	us.reply(MsgPhotoRemoved, n)
}

func (b *Bot) handlePhoto(ctx context.Context, us *UserSession, sess *session.Session, message *tgbotapi.Message) {
	photo, ok := largestPhoto(message.Photo)
	if !ok {
		return
	}
	if int64(photo.FileSize) > b.maxPhoto {
		us.reply(MsgPhotoTooLarge)
		return
	}

	data, err := downloadFileID(ctx, b.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		log.Error().Err(err).Str("fileID", photo.FileID).Msg("failed to download photo")
		us.reply(MsgPhotoDownloadFailed)
		return
	}
	if int64(len(data)) > b.maxPhoto {
		us.reply(MsgPhotoTooLarge)
		return
	}

	img, err := imaging.Normalize(data)
	if err != nil {
		b.replyErr(us, sess, err)
		return
	}
	stored, err := sess.AddImage(img.Data, img.MIMEType, b.now())
	if err != nil {
		b.replyErr(us, sess, err)
		return
	}
	log.Info().Str("session", sess.ID()).Str("image", stored.ID).Int("bytes", len(img.Data)).Msg("photo added")
	us.reply(MsgPhotoAdded, len(sess.Images()), session.MaxImages)

	// A caption is treated like a text message.
	if caption := strings.TrimSpace(message.Caption); caption != "" {
		b.handleText(ctx, us, sess, caption)
	}
}

func (b *Bot) startExtraction(ctx context.Context, us *UserSession, sess *session.Session) {
	if len(sess.Images()) == 0 {
		b.replyErr(us, sess, session.ErrNoImages)
		return
	}
	us.reply(MsgScanning)
	b.goBackground(ctx, us, msgExtractDone, func(ctx context.Context) CallOutcome {
		text, err := b.service.Extract(ctx, sess)
		return CallOutcome{Text: text, Err: err}
	})
}

func (b *Bot) handleExtractDone(us *UserSession, outcome *CallOutcome) {
	if outcome == nil {
		return
	}
	switch {
	case errors.Is(outcome.Err, session.ErrResultDiscarded):
		return
	case outcome.Err != nil:
		b.replyErr(us, nil, outcome.Err)
	case outcome.Text == "":
		us.reply(MsgScanEmpty)
	default:
		us.replyHTML(fmt.Sprintf(MsgScanResult, html.EscapeString(outcome.Text)))
	}
}

func (b *Bot) startGeneration(ctx context.Context, us *UserSession, sess *session.Session) {
	if !listing.Submittable(sess.Item()) {
		b.replyErr(us, sess, session.ErrNotSubmittable)
		return
	}
	us.reply(MsgGeneratingListing)
	b.goBackground(ctx, us, msgGenerateDone, func(ctx context.Context) CallOutcome {
		result, err := b.service.Generate(ctx, sess)
		return CallOutcome{Result: result, Err: err}
	})
}

func (b *Bot) handleGenerateDone(us *UserSession, outcome *CallOutcome) {
	if outcome == nil {
		return
	}
	switch {
	case errors.Is(outcome.Err, session.ErrResultDiscarded):
		us.reply(MsgResultDropped)
		return
	case outcome.Err != nil:
		b.replyErr(us, nil, outcome.Err)
		return
	case outcome.Result == nil:
		return
	}

	us.reply(MsgListingsReady)
	for _, spec := range listing.ResultFields() {
		us.replyHTML(formatResultField(spec, outcome.Result.Get(spec.Key)))
	}
}

func formatResultField(spec listing.ResultFieldSpec, value string) string {
	return fmt.Sprintf(MsgResultFieldFmt, html.EscapeString(spec.Platform), html.EscapeString(spec.Label), html.EscapeString(value))
}

func fieldLabels(item listing.Item, fields []listing.Field) string {
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		for _, spec := range item.Fields() {
			if spec.Key == f {
				labels = append(labels, spec.Label)
			}
		}
	}
	return strings.Join(labels, ", ")
}

func conditionLabels() string {
	conditions := listing.Conditions()
	labels := make([]string, len(conditions))
	for i, c := range conditions {
		labels[i] = c.String()
	}
	return strings.Join(labels, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
