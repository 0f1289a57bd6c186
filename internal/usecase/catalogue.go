package usecase

import "sort"

// InputKind is what a user has to send to set an option.
type InputKind int

const (
	InputText InputKind = iota
	InputDocument
	InputPhotoOrDocument
)

// Option is the static description of one settings key.
type Option struct {
	Key       string
	Group     string
	Label     string
	Input     InputKind
	InputType string
	Desc      string
	Ask       string
	// Choices are offered as one-tap buttons next to the free-form prompt.
	Choices []string
	// Dict options also accept "add one" and "remove one" edits.
	Dict bool
}

func (o Option) IsFile() bool { return o.Input != InputText }

// Group is one settings screen.
type Group struct {
	Name    string
	Title   string
	Parent  string
	Columns int
	// Hidden groups have no screen of their own; their options go back to Parent.
	Hidden bool
}

// Toggle is a boolean flipped from a group screen rather than an option menu.
type Toggle struct {
	Key   string
	Group string
	On    string
	Off   string
}

const MainMenu = "main"

var groups = map[string]Group{
	MainMenu:           {Name: MainMenu, Title: "User Settings", Columns: 2},
	"general":          {Name: "general", Title: "General Settings", Parent: MainMenu, Columns: 1},
	"mirror":           {Name: "mirror", Title: "Mirror Settings", Parent: MainMenu, Columns: 1},
	"leech":            {Name: "leech", Title: "Leech Settings", Parent: MainMenu, Columns: 2},
	"rclone":           {Name: "rclone", Title: "RClone Settings", Parent: "mirror", Columns: 1},
	"gdrive":           {Name: "gdrive", Title: "GDrive Tools Settings", Parent: "mirror", Columns: 2},
	"yttools":          {Name: "yttools", Title: "YouTube Tools Settings", Parent: "mirror", Columns: 2},
	"ffset":            {Name: "ffset", Title: "FF Settings", Parent: MainMenu, Columns: 2},
	"advanced":         {Name: "advanced", Title: "Advanced Settings", Parent: MainMenu, Columns: 1},
	"video_processing": {Name: "video_processing", Title: "Video Processing", Parent: "ffset", Columns: 2},
	"video_encode":     {Name: "video_encode", Title: "Video Encode Settings", Parent: "ffset", Columns: 2},
	"watermark":        {Name: "watermark", Title: "Watermark Settings", Parent: "video_processing", Columns: 3},
	"stream":           {Name: "stream", Parent: "ffset", Hidden: true},
	"video_video":      {Name: "video_video", Title: "Video + Video Processing", Parent: "video_processing", Columns: 2},
	"video_audio":      {Name: "video_audio", Title: "Video + Audio Processing", Parent: "video_processing", Columns: 2},
	"video_subtitle":   {Name: "video_subtitle", Title: "Video + Subtitle Processing", Parent: "video_processing", Columns: 2},
	"rename":           {Name: "rename", Title: "File Rename Configuration", Parent: "video_processing", Columns: 2},
}

// subMenus are the group screens reachable from another screen, in button order.
var subMenus = map[string][]string{
	MainMenu:           {"general", "mirror", "leech", "ffset", "advanced"},
	"mirror":           {"rclone", "gdrive", "yttools"},
	"ffset":            {"video_encode", "video_processing"},
	"video_processing": {"video_video", "video_audio", "video_subtitle", "watermark", "rename"},
}

var toggles = []Toggle{
	{Key: "AS_DOCUMENT", Group: "leech", On: "Send As Media", Off: "Send As Document"},
	{Key: "EQUAL_SPLITS", Group: "leech", On: "Disable Equal Splits", Off: "Enable Equal Splits"},
	{Key: "MEDIA_GROUP", Group: "leech", On: "Disable Media Group", Off: "Enable Media Group"},
	{Key: "USER_TRANSMISSION", Group: "leech", On: "Leech by Bot", Off: "Leech by User"},
	{Key: "HYBRID_LEECH", Group: "leech", On: "Disable Hybrid Leech", Off: "Enable Hybrid Leech"},
	{Key: "STOP_DUPLICATE", Group: "gdrive", On: "Disable Stop Duplicate", Off: "Enable Stop Duplicate"},
	{Key: "USER_TOKENS", Group: "general", On: "Swap to OWNER token/config", Off: "Swap to USER token/config"},
	{Key: "USE_DEFAULT_COOKIE", Group: "general", On: "Swap to USER's Cookie File", Off: "Swap to OWNER's Cookie File"},
}

// premiumToggles only make sense when the bot runs with a premium user session.
var premiumToggles = map[string]bool{"USER_TRANSMISSION": true, "HYBRID_LEECH": true}

var (
	presets     = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"}
	qualities   = []string{"1080p", "720p", "576p", "480p", "360p", "Original"}
	crfChoices  = []string{"18", "20", "23", "25", "28", "30"}
	bitrates    = []string{"64k", "96k", "128k", "192k", "256k", "320k"}
	positions   = []string{"top-left", "top-right", "bottom-left", "bottom-right", "center"}
	wmTypes     = []string{"text", "image"}
	wmSizes     = []string{"small", "medium", "large"}
	wmDurations = []string{"full", "start", "end", "custom"}
	privacy     = []string{"public", "private", "unlisted"}
	caseOptions = []string{"upper", "lower", "title"}
	booleans    = []string{"true", "false"}
)

const dictHint = "Send a dict, e.g. <code>{\"key\": \"value\"}</code>."

var options = []Option{
	// leech
	{Key: "THUMBNAIL", Group: "leech", Label: "Thumbnail", Input: InputPhotoOrDocument, InputType: "Photo or Doc",
		Desc: "Thumbnail used for files uploaded to Telegram in media or document mode.",
		Ask:  "Send a photo to save it as custom thumbnail."},
	{Key: "LEECH_SPLIT_SIZE", Group: "leech", Label: "Leech Split Size", InputType: "Size",
		Desc: "Files larger than this are split before upload.",
		Ask:  "Send leech split size in bytes or use gb or mb. Example: 40000000 or 2.5gb or 1000mb."},
	{Key: "LEECH_DUMP_CHAT", Group: "leech", Label: "Leech Destination", InputType: "Chat",
		Desc: "Where leeched files are sent: b:, u: or h: prefixed id/@username, pm, or id|topic_id.",
		Ask:  "Send leech destination ID/USERNAME/PM."},
	{Key: "LEECH_PREFIX", Group: "leech", Label: "Leech Prefix", InputType: "String",
		Desc: "Text prepended to leeched file names. HTML allowed.",
		Ask:  "Send leech filename prefix. Example: <code>@mychannel</code>."},
	{Key: "LEECH_SUFFIX", Group: "leech", Label: "Leech Suffix", InputType: "String",
		Desc: "Text appended to leeched file names. HTML allowed.",
		Ask:  "Send leech filename suffix. Example: <code>@mychannel</code>."},
	{Key: "LEECH_CAPTION", Group: "leech", Label: "Leech Caption", InputType: "String",
		Desc: "Caption attached to leeched files. HTML allowed.",
		Ask:  "Send leech caption."},
	{Key: "THUMBNAIL_LAYOUT", Group: "leech", Label: "Thumbnail Layout", InputType: "WxH",
		Desc: "Grid used for generated screenshots thumbnails.",
		Ask:  "Send thumbnail layout (widthxheight), e.g. 3x3."},

	// rclone
	{Key: "RCLONE_CONFIG", Group: "rclone", Label: "Rclone Config", Input: InputDocument, InputType: "File",
		Desc: "Your rclone.conf, used as upload destination for RClone.",
		Ask:  "Send your <code>rclone.conf</code> file."},
	{Key: "RCLONE_PATH", Group: "rclone", Label: "Default Rclone Path", InputType: "String",
		Desc: "Default rclone remote path. Prefix with mrcc: to use your own config.",
		Ask:  "Send rclone path. Example: mrcc:remote:folder."},
	{Key: "RCLONE_FLAGS", Group: "rclone", Label: "Rclone Flags", InputType: "key:value|key",
		Desc: "Extra rclone flags.",
		Ask:  "Send flags as key:value|key. Example: --buffer-size:8M|--drive-starred-only."},

	// gdrive
	{Key: "TOKEN_PICKLE", Group: "gdrive", Label: "token.pickle", Input: InputDocument, InputType: "File",
		Desc: "Your token.pickle, used as upload destination for GDrive.",
		Ask:  "Send your <code>token.pickle</code> file."},
	{Key: "GDRIVE_ID", Group: "gdrive", Label: "Default Gdrive ID", InputType: "String",
		Desc: "Default drive folder id. Prefix with mtp: to use your own token.",
		Ask:  "Send Gdrive ID. Example: mtp:F435RGGRDXXXXXX."},
	{Key: "INDEX_URL", Group: "gdrive", Label: "Index URL", InputType: "URL",
		Desc: "Index link for your drive.",
		Ask:  "Send index URL."},

	// yttools
	{Key: "YT_DESP", Group: "yttools", Label: "YT Description", InputType: "String",
		Desc: "Description for YouTube uploads.",
		Ask:  "Send your YouTube description."},
	{Key: "YT_TAGS", Group: "yttools", Label: "YT Tags", InputType: "Comma-separated strings",
		Desc: "Tags for YouTube uploads.",
		Ask:  "Send tags as a comma-separated list."},
	{Key: "YT_CATEGORY_ID", Group: "yttools", Label: "YT Category ID", InputType: "Number",
		Desc: "Category id for YouTube uploads.",
		Ask:  "Send category id, e.g. 22."},
	{Key: "YT_PRIVACY_STATUS", Group: "yttools", Label: "YT Privacy Status", InputType: "public, private, or unlisted",
		Desc: "Privacy status for YouTube uploads.", Choices: privacy,
		Ask: "Send privacy status (public, private or unlisted)."},

	// ffset
	{Key: "FFMPEG_CMDS", Group: "ffset", Label: "FFmpeg Cmds", InputType: "Dict of lists", Dict: true,
		Desc: "Named lists of ffmpeg argument strings run before upload.",
		Ask:  "Send a dict of ffmpeg command lists, e.g. <code>{\"convert\": [\"-i mltb.m4a -c:a libmp3lame mltb.mp3\"]}</code>."},
	{Key: "METADATA", Group: "ffset", Label: "Metadata", InputType: "key=value|key=value",
		Desc: "Metadata applied to all media files. Supports {filename}, {basename}, {audiolang}, {year}.",
		Ask:  "Send metadata as <code>key=value|key2=value2</code>. Use \\| for a literal pipe."},
	{Key: "AUDIO_METADATA", Group: "ffset", Label: "Audio Metadata", InputType: "key=value|key=value",
		Desc: "Metadata applied to each audio track.",
		Ask:  "Send audio metadata, e.g. <code>language={audiolang}|title=Audio</code>."},
	{Key: "VIDEO_METADATA", Group: "ffset", Label: "Video Metadata", InputType: "key=value|key=value",
		Desc: "Metadata applied to video streams.",
		Ask:  "Send video metadata, e.g. <code>title={basename}</code>."},
	{Key: "SUBTITLE_METADATA", Group: "ffset", Label: "Subtitle Metadata", InputType: "key=value|key=value",
		Desc: "Metadata applied to each subtitle track.",
		Ask:  "Send subtitle metadata, e.g. <code>language={sublang}</code>."},

	// advanced
	{Key: "EXCLUDED_EXTENSIONS", Group: "advanced", Label: "Excluded Extensions", InputType: "Space-separated",
		Desc: "Extensions skipped while uploading.",
		Ask:  "Send excluded extensions separated by space, without leading dot."},
	{Key: "NAME_SWAP", Group: "advanced", Label: "Name Swap", InputType: "Pattern",
		Desc: "Rename patterns applied to uploaded file names.",
		Ask:  "Send your name swap pattern."},
	{Key: "YT_DLP_OPTIONS", Group: "advanced", Label: "YT-DLP Options", InputType: "Dict", Dict: true,
		Desc: "yt-dlp API options.",
		Ask:  "Send a dict of yt-dlp options, e.g. <code>{\"format\": \"bv*+ba\", \"writesubtitles\": true}</code>."},
	{Key: "UPLOAD_PATHS", Group: "advanced", Label: "Upload Paths", InputType: "Dict", Dict: true,
		Desc: "Named upload destinations.",
		Ask:  "Send a dict of paths, e.g. <code>{\"path 1\": \"remote:folder\", \"path 2\": \"b:@username\"}</code>."},
	{Key: "USER_COOKIE_FILE", Group: "advanced", Label: "YT Cookie File", Input: InputDocument, InputType: "File",
		Desc: "Cookie file used by yt-dlp to access websites.",
		Ask:  "Send your cookie file (e.g. cookies.txt)."},

	// video_encode
	{Key: "VIDEO_ENCODE_PRESET", Group: "video_encode", Label: "Preset", InputType: "String", Choices: presets,
		Desc: "Encoding speed preset. Faster presets give larger files.",
		Ask:  "Send encoding preset."},
	{Key: "VIDEO_ENCODE_QUALITY", Group: "video_encode", Label: "Quality", InputType: "String", Choices: qualities,
		Desc: "Output resolution. Original keeps the source resolution.",
		Ask:  "Send video quality."},
	{Key: "VIDEO_ENCODE_CRF", Group: "video_encode", Label: "CRF", InputType: "Number", Choices: crfChoices,
		Desc: "Constant Rate Factor, 0-51. Lower is higher quality.",
		Ask:  "Send CRF value (18-30 recommended, 23 is default)."},
	{Key: "VIDEO_ENCODE_AUDIO_BITRATE", Group: "video_encode", Label: "Audio Bitrate", InputType: "String", Choices: bitrates,
		Desc: "Audio bitrate used while encoding.",
		Ask:  "Send audio bitrate."},

	// watermark
	{Key: "WATERMARK_TEXT", Group: "watermark", Label: "Set Text", InputType: "String",
		Desc: "Text drawn as watermark.", Ask: "Send watermark text."},
	{Key: "WATERMARK_TYPE", Group: "watermark", Label: "WM-Type", InputType: "String", Choices: wmTypes,
		Desc: "Watermark kind.", Ask: "Send watermark type (text or image)."},
	{Key: "WATERMARK_IMAGE_PATH", Group: "watermark", Label: "Set Image", Input: InputDocument, InputType: "File",
		Desc: "Image used as watermark.", Ask: "Send image file for watermark."},
	{Key: "WATERMARK_POSITION", Group: "watermark", Label: "Position", InputType: "String", Choices: positions,
		Desc: "Where the watermark is placed.", Ask: "Send watermark position."},
	{Key: "WATERMARK_OPACITY", Group: "watermark", Label: "Opacity", InputType: "Number",
		Desc: "Opacity from 0.0 to 1.0.", Ask: "Send opacity value (0.0 to 1.0, e.g. 0.7)."},
	{Key: "WATERMARK_TEXT_BG", Group: "watermark", Label: "Text-BG", InputType: "Boolean", Choices: booleans,
		Desc: "Draw a background behind text watermarks.", Ask: "Send true or false."},
	{Key: "WATERMARK_FONT", Group: "watermark", Label: "Custom-Fo", InputType: "String",
		Desc: "Font family for text watermarks.", Ask: "Send font name (Arial, Times, Helvetica...)."},
	{Key: "WATERMARK_SIZE", Group: "watermark", Label: "Size", InputType: "String", Choices: wmSizes,
		Desc: "Watermark size.", Ask: "Send watermark size."},
	{Key: "WATERMARK_COLOR", Group: "watermark", Label: "Colour", InputType: "Hex color",
		Desc: "Text color.", Ask: "Send color in hex format (e.g. #FFFFFF)."},
	{Key: "WATERMARK_DURATION", Group: "watermark", Label: "WM-Duration", InputType: "String", Choices: wmDurations,
		Desc: "Which part of the video carries the watermark.", Ask: "Send duration type."},
	{Key: "WATERMARK_SECONDS", Group: "watermark", Label: "WM-Seconds", InputType: "Number",
		Desc: "Seconds used by custom duration.", Ask: "Send duration in seconds."},

	// stream
	{Key: "KEEP_SOURCE", Group: "stream", Label: "Keep Source", InputType: "Boolean", Choices: booleans,
		Desc: "Keep original files after processing.", Ask: "Send true or false."},
	{Key: "STREAM_EXTRACT_OPTIONS", Group: "stream", Label: "Stream Extract", InputType: "Dict",
		Desc: "Streams to extract from media files.", Ask: dictHint},
	{Key: "STREAM_REMOVE_OPTIONS", Group: "stream", Label: "Stream Rem", InputType: "Dict",
		Desc: "Streams to remove from media files.", Ask: dictHint},
	{Key: "STREAM_SWAP_OPTIONS", Group: "stream", Label: "Stream Swap", InputType: "Dict",
		Desc: "Stream reordering.", Ask: dictHint},

	// video_video
	{Key: "VIDEO_STREAM_1", Group: "video_video", Label: "Video Stream 1", InputType: "String",
		Desc: "Primary video input.", Ask: "Send video stream 1 configuration."},
	{Key: "VIDEO_STREAM_2", Group: "video_video", Label: "Video Stream 2", InputType: "String",
		Desc: "Secondary video input.", Ask: "Send video stream 2 configuration."},
	{Key: "VIDEO_MERGE_OPTIONS", Group: "video_video", Label: "Video Merge", InputType: "Dict",
		Desc: "Merging multiple videos.", Ask: dictHint},
	{Key: "VIDEO_OVERLAY_OPTIONS", Group: "video_video", Label: "Video Overlay", InputType: "Dict",
		Desc: "Overlaying one video on another.", Ask: dictHint},
	{Key: "VIDEO_CONCAT_OPTIONS", Group: "video_video", Label: "Video Concat", InputType: "Dict",
		Desc: "Concatenating videos.", Ask: dictHint},
	{Key: "VIDEO_SPLIT_OPTIONS", Group: "video_video", Label: "Video Split", InputType: "Dict",
		Desc: "Splitting video into segments.", Ask: dictHint},

	// video_audio
	{Key: "AUDIO_TRACK_1", Group: "video_audio", Label: "Audio Track 1", InputType: "String",
		Desc: "Primary audio input.", Ask: "Send audio track 1 configuration."},
	{Key: "AUDIO_TRACK_2", Group: "video_audio", Label: "Audio Track 2", InputType: "String",
		Desc: "Secondary audio input.", Ask: "Send audio track 2 configuration."},
	{Key: "AUDIO_MIX_OPTIONS", Group: "video_audio", Label: "Audio Mix", InputType: "Dict",
		Desc: "Mixing audio tracks.", Ask: dictHint},
	{Key: "AUDIO_REPLACE_OPTIONS", Group: "video_audio", Label: "Audio Replace", InputType: "Dict",
		Desc: "Replacing the video audio.", Ask: dictHint},
	{Key: "AUDIO_SYNC_OPTIONS", Group: "video_audio", Label: "Audio Sync", InputType: "Dict",
		Desc: "Synchronizing audio with video.", Ask: dictHint},
	{Key: "AUDIO_VOLUME_OPTIONS", Group: "video_audio", Label: "Audio Volume", InputType: "Dict",
		Desc: "Adjusting audio levels.", Ask: dictHint},

	// video_subtitle
	{Key: "SUBTITLE_FILE", Group: "video_subtitle", Label: "Subtitle File", InputType: "String",
		Desc: "Subtitle file to embed or burn.", Ask: "Send subtitle file name or link (e.g. subtitles.srt)."},
	{Key: "SUBTITLE_EMBED_OPTIONS", Group: "video_subtitle", Label: "Subtitle Embed", InputType: "Dict",
		Desc: "Embedding subtitles in the container.", Ask: dictHint},
	{Key: "SUBTITLE_BURN_OPTIONS", Group: "video_subtitle", Label: "Subtitle Burn", InputType: "Dict",
		Desc: "Burning subtitles into the video.", Ask: dictHint},
	{Key: "SUBTITLE_STYLE_OPTIONS", Group: "video_subtitle", Label: "Subtitle Style", InputType: "Dict",
		Desc: "Subtitle appearance.", Ask: dictHint},
	{Key: "SUBTITLE_POSITION_OPTIONS", Group: "video_subtitle", Label: "Subtitle Position", InputType: "Dict",
		Desc: "Subtitle position on screen.", Ask: dictHint},
	{Key: "SUBTITLE_LANGUAGE_OPTIONS", Group: "video_subtitle", Label: "Subtitle Language", InputType: "Dict",
		Desc: "Subtitle language metadata.", Ask: dictHint},

	// rename
	{Key: "RENAME_PATTERN", Group: "rename", Label: "Rename Pattern", InputType: "String",
		Desc: "Pattern with placeholders used to rename files.", Ask: "Send rename pattern (e.g. {filename}_{date})."},
	{Key: "RENAME_PREFIX", Group: "rename", Label: "Prefix", InputType: "String",
		Desc: "Prefix added to file names.", Ask: "Send filename prefix."},
	{Key: "RENAME_SUFFIX", Group: "rename", Label: "Suffix", InputType: "String",
		Desc: "Suffix added before the extension.", Ask: "Send filename suffix."},
	{Key: "RENAME_EXTENSION", Group: "rename", Label: "Extension Change", InputType: "String",
		Desc: "Extension that replaces the original.", Ask: "Send new file extension (e.g. mp4, mkv)."},
	{Key: "RENAME_CASE_OPTIONS", Group: "rename", Label: "Case Change", InputType: "String", Choices: caseOptions,
		Desc: "Case applied to file names.", Ask: "Send case option (upper, lower, title)."},
	{Key: "RENAME_REPLACE_OPTIONS", Group: "rename", Label: "Replace Text", InputType: "Dict",
		Desc: "Find and replace pairs for file names.", Ask: dictHint},
}

var optionIndex = func() map[string]Option {
	m := make(map[string]Option, len(options))
	for _, o := range options {
		m[o.Key] = o
	}
	return m
}()

// LookupOption returns the catalogue entry for key.
func LookupOption(key string) (Option, bool) {
	o, ok := optionIndex[key]
	return o, ok
}

func LookupGroup(name string) (Group, bool) {
	g, ok := groups[name]
	return g, ok && !g.Hidden
}

// GroupOptions lists the options shown on a group screen in catalogue order.
func GroupOptions(group string) []Option {
	var out []Option
	for _, o := range options {
		if o.Group == group {
			out = append(out, o)
		}
	}
	return out
}

func SubMenus(group string) []string { return subMenus[group] }

func GroupToggles(group string, premium bool) []Toggle {
	var out []Toggle
	for _, t := range toggles {
		if t.Group == group && (premium || !premiumToggles[t.Key]) {
			out = append(out, t)
		}
	}
	return out
}

func LookupToggle(key string) (Toggle, bool) {
	for _, t := range toggles {
		if t.Key == key {
			return t, true
		}
	}
	return Toggle{}, false
}

// BackTarget is the screen an option menu returns to.
func BackTarget(o Option) string {
	g, ok := groups[o.Group]
	if !ok {
		return MainMenu
	}
	if g.Hidden {
		return g.Parent
	}
	return g.Name
}

// FileOptions lists the keys stored as files on disk, sorted.
func FileOptions() []string {
	var out []string
	for _, o := range options {
		if o.IsFile() {
			out = append(out, o.Key)
		}
	}
	sort.Strings(out)
	return out
}

// KnownKey reports whether key is an option, a toggle or one of the
// internal keys the menus write directly.
func KnownKey(key string) bool {
	if _, ok := optionIndex[key]; ok {
		return true
	}
	if _, ok := LookupToggle(key); ok {
		return true
	}
	return key == "DEFAULT_UPLOAD"
}
