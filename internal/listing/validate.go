package listing

// Submittable reports whether the item carries the minimum fields needed to
// request listings. Values are not trimmed: whitespace counts as content.
func Submittable(item Item) bool {
	switch it := item.(type) {
	case AutoPartItem:
		return len(it.PartName) > 0 && len(it.Make) > 0
	case GeneralItem:
		return len(it.ItemName) > 0 || len(it.UPC) > 0
	}
	return false
}

// MissingFields lists the fields that keep the item from being submittable,
// for user facing hints.
func MissingFields(item Item) []Field {
	switch it := item.(type) {
	case AutoPartItem:
		var missing []Field
		if it.Make == "" {
			missing = append(missing, FieldMake)
		}
		if it.PartName == "" {
			missing = append(missing, FieldPartName)
		}
		return missing
	case GeneralItem:
		if it.ItemName == "" && it.UPC == "" {
			return []Field{FieldItemName, FieldUPC}
		}
	}
	return nil
}
