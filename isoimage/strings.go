package isoimage

// defaultStringTable is the built-in StringTable that DefaultOptions sets
// and that WithStringTable keeps when given nil. Wording mirrors the
// original writer's WARNING_* diagnostics.
type defaultStringTable struct{}

func (defaultStringTable) Lookup(key MessageKey) string {
	switch key {
	case MsgDirDepthExceeded:
		return "directory depth exceeds the file system's limit, entry excluded"
	case MsgFileSkippedTooLarge:
		return "file exceeds the maximum size for this file system and fragmentation is disabled, skipped"
	case MsgFileSkippedTooLargeISO:
		return "file exceeds the ISO 9660 single-extent limit, skipped from the ISO 9660/Joliet view"
	case MsgNameUniquifyExhausted:
		return "could not derive a unique name for sibling after exhausting the uniquifier counter"
	case MsgFragmentingFile:
		return "file exceeds the single-extent limit, splitting into multiple extents"
	default:
		return "unknown condition"
	}
}
