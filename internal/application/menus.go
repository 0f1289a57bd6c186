package application

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/usecase"

	"github.com/spf13/cast"
)

// Screen is a rendered menu: HTML text plus its keyboard.
type Screen struct {
	Text   string
	Markup *adapter.ReplyMarkup
}

// Presser identifies the user a menu is rendered for.
type Presser struct {
	ID       int64
	Name     string
	Username string
}

func (p Presser) mention() string {
	name := p.Name
	if name == "" {
		name = fmt.Sprint(p.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, p.ID, html.EscapeString(name))
}

func cbData(uid int64, parts ...string) string {
	return CallbackPrefix + " " + fmt.Sprint(uid) + " " + strings.Join(parts, " ")
}

// withDefaults overlays the user's values on the global defaults.
func withDefaults(user, defaults model.UserSettings) model.UserSettings {
	out := defaults.Clone()
	for k, v := range user {
		out[k] = v
	}
	return out
}

// renderScreen builds the screen for a group name (or "main").
func (r *SettingsRouter) renderScreen(ctx context.Context, p Presser, stype string) (Screen, error) {
	user, err := r.settings.Get(ctx, p.ID)
	if err != nil {
		return Screen{}, err
	}
	switch stype {
	case usecase.MainMenu:
		return r.mainScreen(p, user), nil
	case "general":
		return r.generalScreen(p, user), nil
	}
	g, ok := usecase.LookupGroup(stype)
	if !ok {
		return r.mainScreen(p, user), nil
	}
	return r.groupScreen(p, g, user), nil
}

func (r *SettingsRouter) mainScreen(p Presser, user model.UserSettings) Screen {
	b := NewButtonMaker()
	for _, name := range usecase.SubMenus(usecase.MainMenu) {
		g, _ := usecase.LookupGroup(name)
		b.DataButton(g.Title, cbData(p.ID, name))
	}
	for k := range user {
		if usecase.KnownKey(k) {
			b.DataButton("Reset All", cbData(p.ID, "confirm_reset_all"), PosFooter)
			break
		}
	}
	b.DataButton("Close", cbData(p.ID, "close"), PosFooter)

	username := "N/A"
	if p.Username != "" {
		username = "@" + p.Username
	}
	text := fmt.Sprintf(`⌬ <b>User Settings :</b>
│
┟ <b>Name</b> → %s
┠ <b>UserID</b> → #ID%d
┖ <b>Username</b> → %s`, p.mention(), p.ID, html.EscapeString(username))
	return Screen{Text: text, Markup: b.BuildMenu(2)}
}

func (r *SettingsRouter) generalScreen(p Presser, user model.UserSettings) Screen {
	eff := withDefaults(user, r.settings.Defaults())
	b := NewButtonMaker()

	upload := eff.String("DEFAULT_UPLOAD")
	if upload != "rc" {
		upload = "gd"
	}
	current, other := "GDRIVE API", "RCLONE"
	if upload == "rc" {
		current, other = other, current
	}
	b.DataButton("Swap to "+other+" Mode", cbData(p.ID, upload))

	for _, t := range usecase.GroupToggles("general", r.premium) {
		r.toggleButton(b, p.ID, t, eff)
	}
	b.DataButton("Back", cbData(p.ID, "back"), PosFooter)
	b.DataButton("Close", cbData(p.ID, "close"), PosFooter)

	usage := "OWNER"
	if eff.IsSet("USER_TOKENS") {
		usage = "USER"
	}
	cookies := "User's Cookie"
	if eff.IsSet("USE_DEFAULT_COOKIE") {
		cookies = "Owner's Cookie"
	}
	text := fmt.Sprintf(`⌬ <b>General Settings :</b>
┟ <b>Name</b> → %s
┃
┠ <b>Default Upload Package</b> → <b>%s</b>
┠ <b>Default Usage Mode</b> → <b>%s's</b> token/config
┖ <b>yt Cookies Mode</b> → <b>%s</b>`, p.mention(), current, usage, cookies)
	return Screen{Text: text, Markup: b.BuildMenu(1)}
}

func (r *SettingsRouter) toggleButton(b *ButtonMaker, uid int64, t usecase.Toggle, eff model.UserSettings) {
	if eff.IsSet(t.Key) {
		b.DataButton(t.On, cbData(uid, "tog", t.Key, "f"))
		return
	}
	b.DataButton(t.Off, cbData(uid, "tog", t.Key, "t"))
}

func (r *SettingsRouter) groupScreen(p Presser, g usecase.Group, user model.UserSettings) Screen {
	eff := withDefaults(user, r.settings.Defaults())
	b := NewButtonMaker()

	var lines []string
	for _, o := range usecase.GroupOptions(g.Name) {
		b.DataButton(o.Label, cbData(p.ID, "menu", o.Key))
		lines = append(lines, fmt.Sprintf("<b>%s</b> → %s", o.Label, r.summary(p.ID, o, eff)))
	}
	for _, t := range usecase.GroupToggles(g.Name, r.premium) {
		r.toggleButton(b, p.ID, t, eff)
		state := "Disabled"
		if eff.IsSet(t.Key) {
			state = "Enabled"
		}
		lines = append(lines, fmt.Sprintf("<b>%s</b> → %s", prettyKey(t.Key), state))
	}
	for _, name := range usecase.SubMenus(g.Name) {
		sub, _ := usecase.LookupGroup(name)
		b.DataButton(sub.Title, cbData(p.ID, name), PosLBody)
	}

	back := "back"
	if g.Parent != "" && g.Parent != usecase.MainMenu {
		back = "back " + g.Parent
	}
	b.DataButton("Back", cbData(p.ID, back), PosFooter)
	b.DataButton("Close", cbData(p.ID, "close"), PosFooter)

	var sb strings.Builder
	fmt.Fprintf(&sb, "⌬ <b>%s :</b>\n┟ <b>Name</b> → %s", g.Title, p.mention())
	for i, line := range lines {
		if i == 0 {
			sb.WriteString("\n┃")
		}
		prefix := "\n┠ "
		if i == len(lines)-1 {
			prefix = "\n┖ "
		}
		sb.WriteString(prefix + line)
	}
	return Screen{Text: sb.String(), Markup: b.BuildMenu(g.Columns)}
}

// summary is the short value shown on a group screen.
func (r *SettingsRouter) summary(uid int64, o usecase.Option, eff model.UserSettings) string {
	if o.IsFile() {
		if r.settings.HasFile(uid, o.Key) {
			return "Exists"
		}
		return "Not Exists"
	}
	if !eff.IsSet(o.Key) {
		return "Not Exists"
	}
	if o.Key == "LEECH_SPLIT_SIZE" {
		return usecase.ReadableSize(eff.Int64(o.Key, 0))
	}
	v := formatValue(eff[o.Key])
	if len([]rune(v)) > 40 {
		v = string([]rune(v)[:40]) + "…"
	}
	return "<code>" + html.EscapeString(v) + "</code>"
}

// optionScreen is the per-option menu with Set/Change, Reset or Remove.
func (r *SettingsRouter) optionScreen(ctx context.Context, uid int64, key string) (Screen, error) {
	o, ok := usecase.LookupOption(key)
	if !ok {
		return Screen{}, fmt.Errorf("option menu %s: unknown option", key)
	}
	user, err := r.settings.Get(ctx, uid)
	if err != nil {
		return Screen{}, err
	}

	b := NewButtonMaker()
	set := user.IsSet(key)
	action := "set"
	if o.IsFile() {
		action = "file"
	}
	label := "Set"
	if set {
		label = "Change"
	}
	b.DataButton(label, cbData(uid, action, key))
	for _, c := range o.Choices {
		b.DataButton(c, cbData(uid, "pick", key, c))
	}
	if set {
		switch {
		case key == "THUMBNAIL":
			b.DataButton("View Thumb", cbData(uid, "view", key), PosHeader)
		case o.Dict:
			b.DataButton("Add One", cbData(uid, "addone", key), PosHeader)
			b.DataButton("Remove One", cbData(uid, "rmone", key), PosHeader)
		}
		if !o.IsFile() {
			b.DataButton("Reset", cbData(uid, "reset", key))
		} else if r.settings.HasFile(uid, key) {
			b.DataButton("Remove", cbData(uid, "remove", key))
		}
	}
	b.DataButton("Back", cbData(uid, "back", usecase.BackTarget(o)), PosFooter)
	b.DataButton("Close", cbData(uid, "close"), PosFooter)

	text := fmt.Sprintf(`⌬ <b><u>Menu Settings :</u></b>
│
┟ <b>Option</b> → %s
┃
┠ <b>Option's Value</b> → %s
┃
┠ <b>Default Input Type</b> → %s
┖ <b>Description</b> → %s`, key, r.optionValue(uid, o, user), o.InputType, o.Desc)
	return Screen{Text: text, Markup: b.BuildMenu(2)}, nil
}

func (r *SettingsRouter) optionValue(uid int64, o usecase.Option, user model.UserSettings) string {
	switch {
	case o.IsFile():
		if r.settings.HasFile(uid, o.Key) {
			return "<b>Exists</b>"
		}
		return "<b>Not Exists</b>"
	case usecase.ValidatorFor(o.Key).Kind == usecase.KindMetadata && !user.IsSet(o.Key):
		return "<b>Not Set</b>"
	case !user.IsSet(o.Key):
		return "<b>Not Exists</b>"
	case o.Key == "LEECH_SPLIT_SIZE":
		return usecase.ReadableSize(user.Int64(o.Key, 0))
	}
	return "<code>" + html.EscapeString(formatValue(user[o.Key])) + "</code>"
}

// formatValue renders a stored value; dicts as k=v pairs in key order.
func formatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(tv, ", ")
	case []any:
		return strings.Join(cast.ToStringSlice(tv), ", ")
	case map[string]any:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+cast.ToString(tv[k]))
		}
		return strings.Join(parts, ", ")
	}
	return cast.ToString(v)
}

// prettyKey turns "EQUAL_SPLITS" into "Equal Splits".
func prettyKey(key string) string {
	words := strings.Split(strings.ToLower(key), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
