package studio

import (
	"context"

	"golang.org/x/text/language"
)

// Messages are the model-side transcript lines of one locale.
type Messages struct {
	Greeting string
	Complete string
	Failed   string
	NoImage  string
}

var (
	supportedLocales = []language.Tag{language.English, language.Indonesian}
	localeMatcher    = language.NewMatcher(supportedLocales)

	catalog = map[language.Tag]Messages{
		language.English: {
			Greeting: "Identity anchored. Apply your style DNA to start the remix.",
			Complete: "Modification complete.",
			Failed:   "Cycle limit reached.",
			NoImage:  "No modification returned.",
		},
		language.Indonesian: {
			Greeting: "Identitas terkunci. Terapkan DNA gaya Anda untuk memulai remix.",
			Complete: "Modifikasi selesai.",
			Failed:   "Batas siklus tercapai.",
			NoImage:  "Tidak ada modifikasi yang dikembalikan.",
		},
	}
)

// MessagesFor returns the catalog entry best matching locale, which may be a
// BCP 47 tag or an Accept-Language value. Unknown locales get English.
func MessagesFor(locale string) Messages {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return catalog[language.English]
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return catalog[language.English]
	}
	return catalog[supportedLocales[idx]]
}

type localeKey struct{}

// WithLocale attaches the caller's locale to ctx for transcript messages.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

func messagesFrom(ctx context.Context) Messages {
	locale, _ := ctx.Value(localeKey{}).(string)
	return MessagesFor(locale)
}
