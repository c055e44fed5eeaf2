package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgFailed        = `⚠️ %s`
	MsgReset         = "Started over. Both forms, photos and listings were cleared."
	MsgUnknownInput  = "I didn't understand that. Send /help to see what I can do."
)

const MsgHelp = `
	*Rapid Listing*

	Describe an item and I will write listings for eBay, Facebook Marketplace and Craigslist.

	/auto - describe an auto part
	/general - describe a general item
	/set <field> <value> - set a field, e.g. ` + "`/set make Toyota`" + `
	/show - show the current item
	/photos - list photos
	/removephoto <n> - remove photo number n
	/scan - read text from the latest photo
	/generate - write the listings
	/reset - start over

	You can also send ` + "`field: value`" + `, e.g. ` + "`part name: Headlight`" + `.
	Send a photo to add it to the item.
`

// =============================================================================
// Mode and field messages
// =============================================================================

const (
	MsgModeSwitched      = "Switched to *%s*."
	MsgFieldSet          = "%s: *%s*"
	MsgFieldCleared      = "%s cleared."
	MsgModelCleared      = "Model cleared because the make changed."
	MsgPopularModels     = "Popular models: %s"
	MsgSetUsage          = "Usage: `/set <field> <value>`\n\nFields: %s"
	MsgUnknownFieldFmt   = "Unknown field *%s*.\n\nFields: %s"
	MsgConditionOptions  = "Condition must be one of: %s"
	MsgItemHeader        = "*%s*"
	MsgMissingFields     = "Still needed before generating: %s"
	MsgReadyToGenerate   = "Ready. Send /generate to write the listings."
	MsgFieldLine         = "%s (`%s`): %s"
	MsgFieldLineEmpty    = "%s (`%s`): -"
	MsgGeneratingListing = "Writing listings..."
)

// =============================================================================
// Photo messages
// =============================================================================

const (
	MsgPhotoAdded          = "Photo added (%d/%d). Send /scan to read text from it."
	MsgPhotoTooLarge       = "That photo is too large."
	MsgPhotoDownloadFailed = "Could not download the photo, please send it again."
	MsgPhotoRemoved        = "Photo %d removed."
	MsgNoPhotos            = "No photos yet. Send a photo to add it."
	MsgPhotosHeader        = "*Photos:* %s"
	MsgPhotoLine           = "%d. %s, %d KB"
	MsgRemovePhotoUsage    = "Usage: `/removephoto <n>`"
	MsgScanning            = "Reading text from the latest photo..."
	MsgScanResult          = "<b>Text from photo:</b>\n<code>%s</code>"
	MsgScanEmpty           = "No text found in the photo."
)

// =============================================================================
// Result messages
// =============================================================================

const (
	MsgListingsReady  = "✅ Listings ready. Tap a text to copy it."
	MsgResultDropped  = "The listings were discarded because the form changed. Send /generate again."
	MsgResultFieldFmt = "<b>%s %s</b>\n<code>%s</code>"
)
