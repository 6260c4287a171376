// Package i18n localises page labels and user-facing error messages.
// English text doubles as the message key; other languages are registered in
// the catalog below and fall back to English when a key is missing.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"image-editor/internal/domain"
)

var (
	English    = language.English
	Indonesian = language.Indonesian

	supported = []language.Tag{English, Indonesian}
	matcher   = language.NewMatcher(supported)
	cat       = newCatalog()
)

const (
	generationPrefix = "Failed to generate image: "
	unknownCause     = "An unknown error occurred."
)

// indonesianMessages pairs each English key with its Indonesian text.
var indonesianMessages = [][2]string{
	{"Gemini Image Editor", "Editor Gambar Gemini"},
	{"Upload an image, describe your desired edit, and let Gemini's magic transform it.", "Unggah gambar, jelaskan perubahan yang Anda inginkan, dan biarkan keajaiban Gemini mengubahnya."},
	{"1. Upload Your Image", "1. Unggah Gambar Anda"},
	{"2. Describe Your Edit", "2. Jelaskan Perubahan Anda"},
	{"Click to upload or drag & drop", "Klik untuk mengunggah atau seret & lepas"},
	{"PNG, JPG, or other image formats", "PNG, JPG, atau format gambar lainnya"},
	{"e.g., 'Add a retro filter', 'Make the sky look like a galaxy', 'Change the background to a beach at sunset'", "mis. 'Tambahkan filter retro', 'Buat langit seperti galaksi', 'Ganti latar belakang menjadi pantai saat senja'"},
	{"Generate Image", "Buat Gambar"},
	{"Generating...", "Sedang membuat..."},
	{"Oops!", "Ups!"},
	{"Original", "Asli"},
	{"Edited with Gemini", "Diedit dengan Gemini"},
	{"Generating your masterpiece...", "Sedang membuat mahakarya Anda..."},
	{"Image will appear here", "Gambar akan muncul di sini"},
	{"Please upload a valid image file (PNG, JPEG, etc.).", "Silakan unggah file gambar yang valid (PNG, JPEG, dll.)."},
	{"Failed to read the image file.", "Gagal membaca file gambar."},
	{"Please upload an image and enter an editing prompt.", "Silakan unggah gambar dan masukkan perintah edit."},
	{"An edit is already in progress.", "Proses edit sedang berjalan."},
	{"Failed to generate image.", "Gagal membuat gambar."},
	{"Failed to generate image: %s", "Gagal membuat gambar: %s"},
	{"An unknown error occurred.", "Terjadi kesalahan yang tidak diketahui."},
	{"Not found.", "Tidak ditemukan."},
	{"Too many requests.", "Terlalu banyak permintaan."},
}

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(English))
	for _, m := range indonesianMessages {
		// keys and translations are static; SetString only fails on malformed tags
		_ = b.SetString(Indonesian, m[0], m[1])
	}
	return b
}

// Supported lists the languages with a catalog, default first.
func Supported() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// Match picks the best supported language for the given preferences. Each
// entry may be a single tag or a full Accept-Language header; unparsable
// entries are skipped. English is returned when nothing matches.
func Match(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	return supported[idx]
}

// Parse maps a single locale string onto a supported language, or returns
// fallback when it cannot be matched.
func Parse(locale string, fallback language.Tag) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return fallback
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}

// Code returns the short code used in cookies and HTML lang attributes.
func Code(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// Printer returns a message printer bound to the catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// T translates a fixed label.
func T(tag language.Tag, key string) string {
	return Printer(tag).Sprintf(key)
}

// ErrorMessage localises a user-facing error. Generation failures keep the
// remote detail untranslated.
func ErrorMessage(tag language.Tag, e *domain.Error) string {
	if e == nil {
		return ""
	}
	p := Printer(tag)
	if e.Code == domain.CodeGenerationFailed && strings.HasPrefix(e.Message, generationPrefix) {
		detail := strings.TrimPrefix(e.Message, generationPrefix)
		if detail == unknownCause {
			detail = p.Sprintf(detail)
		}
		return p.Sprintf("Failed to generate image: %s", detail)
	}
	return p.Sprintf(e.Message)
}
