package isoimage

// Options configures a single image Create invocation. Build one with
// DefaultOptions and apply Option functions, following the functional-option
// shape used throughout the pack (see rstms-iso-kit/pkg/options).
type Options struct {
	FileSystem FileSystemMode

	InterchangeLevel  int  // 1, 2, or 3
	IncludeFileVerInfo bool // append ";1" to file identifiers
	LongJolietNames    bool // 103 UCS-2 units instead of 64
	RelaxMaxDirLevel   bool // allow depth > 8 (up to 16)
	AllowFragmentation bool // interchange level 3: permit multi-extent files

	PartAccessType UDFAccessType // opaque to the ISO core, passed through to the UDF bridge

	UseFileTimes bool   // derive directory-record timestamps from FileTimes
	SectorOffset uint32 // start-sector bias for multi-session discs

	StrictNameUniqueness bool // stored on the name encoders but not read: an exhausted uniquifier always warns and keeps the colliding name

	VolumeIdentifierISO          string
	VolumeIdentifierJoliet       string
	SystemIdentifier             string
	PublisherIdentifierISO       string
	PublisherIdentifierJoliet    string
	DataPreparerIdentifierISO    string
	DataPreparerIdentifierJoliet string
	ApplicationIdentifierISO     string
	ApplicationIdentifierJoliet  string
	JolietEscapeSequence         [3]byte

	Logger          Logger
	Progress        ProgressReporter
	FileTimes       FileTimes
	Strings         StringTable
	BootEntries     []BootEntry
	ImportedSession []ImportedMapping
}

// UDFAccessType is opaque to the ISO 9660 core; it is passed through to the
// UDF bridge's partition descriptor.
type UDFAccessType int

const (
	UDFAccessOverwritable UDFAccessType = iota
	UDFAccessRewritable
	UDFAccessWriteOnce
	UDFAccessReadOnly
)

// ImportedMapping associates an internal path already present in a prior
// session with the pre-baked metadata it should carry forward.
type ImportedMapping struct {
	InternalPath string
	Info         ImportedInfo
}

// Option mutates an Options value during construction.
type Option func(*Options)

// DefaultOptions returns sensible defaults: ISO9660+Joliet, interchange
// level 2, image-creation-time timestamps.
func DefaultOptions() *Options {
	return &Options{
		FileSystem:                   ModeISO9660Joliet,
		InterchangeLevel:             2,
		IncludeFileVerInfo:           true,
		LongJolietNames:              false,
		RelaxMaxDirLevel:             false,
		AllowFragmentation:           false,
		PartAccessType:               UDFAccessReadOnly,
		UseFileTimes:                 false,
		SectorOffset:                 0,
		StrictNameUniqueness:         false,
		VolumeIdentifierISO:          "ISOIMAGE",
		VolumeIdentifierJoliet:       "isoimage",
		SystemIdentifier:             " ",
		PublisherIdentifierISO:       "",
		PublisherIdentifierJoliet:    "",
		DataPreparerIdentifierISO:    "",
		DataPreparerIdentifierJoliet: "",
		ApplicationIdentifierISO:     "isoimage",
		ApplicationIdentifierJoliet:  "isoimage",
		JolietEscapeSequence:         [3]byte{'%', '/', 'E'}, // UCS-2 level 3
		Logger:                       nopLogger{},
		Progress:                     nopProgress{},
		Strings:                      defaultStringTable{},
	}
}

// NewOptions returns DefaultOptions with every opt applied in order.
func NewOptions(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithFileSystem(mode FileSystemMode) Option {
	return func(o *Options) { o.FileSystem = mode }
}

func WithInterchangeLevel(level int) Option {
	return func(o *Options) { o.InterchangeLevel = level }
}

func WithIncludeFileVerInfo(enabled bool) Option {
	return func(o *Options) { o.IncludeFileVerInfo = enabled }
}

func WithLongJolietNames(enabled bool) Option {
	return func(o *Options) { o.LongJolietNames = enabled }
}

func WithRelaxMaxDirLevel(enabled bool) Option {
	return func(o *Options) { o.RelaxMaxDirLevel = enabled }
}

func WithAllowFragmentation(enabled bool) Option {
	return func(o *Options) { o.AllowFragmentation = enabled }
}

func WithPartAccessType(t UDFAccessType) Option {
	return func(o *Options) { o.PartAccessType = t }
}

func WithUseFileTimes(enabled bool) Option {
	return func(o *Options) { o.UseFileTimes = enabled }
}

func WithSectorOffset(offset uint32) Option {
	return func(o *Options) { o.SectorOffset = offset }
}

func WithStrictNameUniqueness(enabled bool) Option {
	return func(o *Options) { o.StrictNameUniqueness = enabled }
}

func WithVolumeIdentifier(iso, joliet string) Option {
	return func(o *Options) {
		o.VolumeIdentifierISO = iso
		o.VolumeIdentifierJoliet = joliet
	}
}

func WithLogger(l Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func WithProgress(p ProgressReporter) Option {
	return func(o *Options) {
		if p != nil {
			o.Progress = p
		}
	}
}

func WithFileTimes(ft FileTimes) Option {
	return func(o *Options) { o.FileTimes = ft }
}

func WithStringTable(st StringTable) Option {
	return func(o *Options) {
		if st != nil {
			o.Strings = st
		}
	}
}

// WithBootEntry adds one El Torito boot entry to the image.
func WithBootEntry(entry BootEntry) Option {
	return func(o *Options) { o.BootEntries = append(o.BootEntries, entry) }
}

// WithImportedSession registers pre-baked metadata for a node carried
// forward from a previous disc session.
func WithImportedSession(mappings ...ImportedMapping) Option {
	return func(o *Options) { o.ImportedSession = append(o.ImportedSession, mappings...) }
}

// maxDirDepth resolves the configured directory-depth ceiling.
func (o *Options) maxDirDepth() int {
	if o.RelaxMaxDirLevel {
		return relaxedMaxDirDepth
	}
	return defaultMaxDirDepth
}

func (o *Options) jolietMaxChars() int {
	if o.LongJolietNames {
		return JolietMaxFilenameCharsRelaxed
	}
	return JolietMaxFilenameChars
}
