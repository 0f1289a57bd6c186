package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"telegram-usersettings/internal/domain"

	"gopkg.in/yaml.v3"
)

// ValueKind tags how a raw user message is turned into a stored value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindSize
	KindExtensions
	KindTags
	KindWholeNumber
	KindEnum
	KindIntRange
	KindFloatRange
	KindHexColor
	KindBool
	KindMetadata
	KindDict
)

// Validator is one row of the option -> parser table.
type Validator struct {
	Kind    ValueKind
	Choices []string
	// Fold lowercases input before matching Choices and stores it lowercased.
	Fold     bool
	Min, Max float64
	// Name is how the option is called in error messages.
	Name string
}

// Limits carries runtime bounds some parsers need.
type Limits struct {
	MaxSplitSize int64
}

var dictOption = Validator{Kind: KindDict}

var validators = map[string]Validator{
	"LEECH_SPLIT_SIZE":    {Kind: KindSize},
	"EXCLUDED_EXTENSIONS": {Kind: KindExtensions},
	"YT_TAGS":             {Kind: KindTags},
	"YT_CATEGORY_ID":      {Kind: KindWholeNumber, Name: "YT Category ID"},
	"YT_PRIVACY_STATUS":   {Kind: KindEnum, Choices: privacy, Fold: true, Name: "YT Privacy Status"},

	"METADATA":          {Kind: KindMetadata},
	"AUDIO_METADATA":    {Kind: KindMetadata},
	"VIDEO_METADATA":    {Kind: KindMetadata},
	"SUBTITLE_METADATA": {Kind: KindMetadata},

	"UPLOAD_PATHS":   dictOption,
	"FFMPEG_CMDS":    dictOption,
	"YT_DLP_OPTIONS": dictOption,

	"VIDEO_ENCODE_PRESET":        {Kind: KindEnum, Choices: presets, Name: "preset"},
	"VIDEO_ENCODE_QUALITY":       {Kind: KindEnum, Choices: qualities, Name: "quality"},
	"VIDEO_ENCODE_CRF":           {Kind: KindIntRange, Min: 0, Max: 51, Name: "CRF"},
	"VIDEO_ENCODE_AUDIO_BITRATE": {Kind: KindEnum, Choices: bitrates, Name: "audio bitrate"},

	"WATERMARK_OPACITY":  {Kind: KindFloatRange, Min: 0, Max: 1, Name: "Opacity"},
	"WATERMARK_COLOR":    {Kind: KindHexColor},
	"WATERMARK_POSITION": {Kind: KindEnum, Choices: positions, Name: "position"},
	"WATERMARK_TYPE":     {Kind: KindEnum, Choices: wmTypes, Name: "watermark type"},
	"WATERMARK_SIZE":     {Kind: KindEnum, Choices: wmSizes, Name: "size"},
	"WATERMARK_DURATION": {Kind: KindEnum, Choices: wmDurations, Name: "duration"},
	"WATERMARK_TEXT_BG":  {Kind: KindBool, Name: "Text background"},
	"WATERMARK_SECONDS":  {Kind: KindWholeNumber, Name: "Watermark seconds"},
	"KEEP_SOURCE":        {Kind: KindBool, Name: "Keep source"},

	"STREAM_EXTRACT_OPTIONS": dictOption,
	"STREAM_REMOVE_OPTIONS":  dictOption,
	"STREAM_SWAP_OPTIONS":    dictOption,

	"VIDEO_MERGE_OPTIONS":   dictOption,
	"VIDEO_OVERLAY_OPTIONS": dictOption,
	"VIDEO_CONCAT_OPTIONS":  dictOption,
	"VIDEO_SPLIT_OPTIONS":   dictOption,

	"AUDIO_MIX_OPTIONS":     dictOption,
	"AUDIO_REPLACE_OPTIONS": dictOption,
	"AUDIO_SYNC_OPTIONS":    dictOption,
	"AUDIO_VOLUME_OPTIONS":  dictOption,

	"SUBTITLE_EMBED_OPTIONS":    dictOption,
	"SUBTITLE_BURN_OPTIONS":     dictOption,
	"SUBTITLE_STYLE_OPTIONS":    dictOption,
	"SUBTITLE_POSITION_OPTIONS": dictOption,
	"SUBTITLE_LANGUAGE_OPTIONS": dictOption,

	"RENAME_CASE_OPTIONS":    {Kind: KindEnum, Choices: caseOptions, Name: "case option"},
	"RENAME_REPLACE_OPTIONS": dictOption,
}

// ValidatorFor returns the parser for key; unknown text options are free text.
func ValidatorFor(key string) Validator {
	if v, ok := validators[key]; ok {
		return v
	}
	return Validator{Kind: KindText}
}

// ParseOption validates raw for option key and returns the value to store.
// Failures are *domain.ValidationError with a message meant for the user.
func ParseOption(key, raw string, lim Limits) (any, error) {
	return ValidatorFor(key).Parse(key, raw, lim)
}

var (
	hexColor   = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	whitespace = regexp.MustCompile(`\s+`)
)

func (v Validator) Parse(key, raw string, lim Limits) (any, error) {
	invalid := func(format string, args ...any) error {
		return domain.NewValidationError(key, fmt.Sprintf(format, args...))
	}

	switch v.Kind {
	case KindText:
		return raw, nil

	case KindSize:
		n, err := ParseSize(raw)
		if err != nil || n <= 0 {
			return nil, invalid("Send split size in bytes or with gb/mb, e.g. 2.5gb.")
		}
		if lim.MaxSplitSize > 0 && n > lim.MaxSplitSize {
			n = lim.MaxSplitSize
		}
		return n, nil

	case KindExtensions:
		out := []string{"aria2", "!qB"}
		for _, x := range strings.Fields(raw) {
			x = strings.ToLower(strings.TrimSpace(strings.TrimLeft(x, ".")))
			if x != "" {
				out = append(out, x)
			}
		}
		return out, nil

	case KindTags:
		out := []string{}
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				out = append(out, tag)
			}
		}
		return out, nil

	case KindWholeNumber:
		s := strings.TrimSpace(raw)
		if s == "" || strings.TrimLeft(s, "0123456789") != "" {
			return nil, invalid("%s must be a whole number.", v.Name)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, invalid("%s must be a whole number.", v.Name)
		}
		return n, nil

	case KindEnum:
		s := strings.TrimSpace(raw)
		if v.Fold {
			s = strings.ToLower(s)
		}
		for _, c := range v.Choices {
			if s == c {
				return s, nil
			}
		}
		if v.Fold {
			return nil, invalid("%s must be one of: %s.", v.Name, strings.Join(v.Choices, ", "))
		}
		return nil, invalid("Invalid %s. Please select from: %s", v.Name, strings.Join(v.Choices, ", "))

	case KindIntRange:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, invalid("%s must be a number between %g and %g.", v.Name, v.Min, v.Max)
		}
		if float64(n) < v.Min || float64(n) > v.Max {
			return nil, invalid("%s must be between %g and %g.", v.Name, v.Min, v.Max)
		}
		return n, nil

	case KindFloatRange:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, invalid("%s must be a number between %.1f and %.1f.", v.Name, v.Min, v.Max)
		}
		if f < v.Min || f > v.Max {
			return nil, invalid("%s must be between %.1f and %.1f.", v.Name, v.Min, v.Max)
		}
		return f, nil

	case KindHexColor:
		s := strings.TrimSpace(raw)
		if !hexColor.MatchString(s) {
			return nil, invalid("Color must be in hex format like '#FFFFFF'.")
		}
		return s, nil

	case KindBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, invalid("%s must be true or false.", v.Name)

	case KindMetadata:
		return parseMetadata(key, raw)

	case KindDict:
		return ParseDict(key, raw)
	}
	return nil, fmt.Errorf("option %s: unhandled value kind %d: %w", key, v.Kind, domain.ErrInvalidArgument)
}

// parseMetadata reads "k=v|k=v"; "\|" is a literal pipe and parts without
// "=" are ignored. Blank input clears the value.
func parseMetadata(key, raw string) (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}

	var (
		parts   []string
		current strings.Builder
	)
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == '\\' && i+1 < len(raw) && raw[i+1] == '|':
			current.WriteByte('|')
			i++
		case raw[i] == '|':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(raw[i])
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	for _, part := range parts {
		k, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	if len(out) == 0 {
		return nil, domain.NewValidationError(key,
			"Malformed metadata string. Format: key1=value1|key2=value2. Use \\| to escape pipe characters.")
	}
	return out, nil
}

// ParseDict reads a "{...}" literal as a YAML flow mapping, which covers
// JSON objects and the quoted-key dict syntax users paste.
func ParseDict(key, raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, domain.NewValidationError(key, "It must be dict!")
	}
	s = whitespace.ReplaceAllString(s, " ")

	var out map[string]any
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return nil, domain.NewValidationError(key, err.Error())
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
