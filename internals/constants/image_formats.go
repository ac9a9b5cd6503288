package constants

// Raster formats accepted for attendance photos, keyed by sniffed MIME type.
var AcceptedImageMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func IsAcceptedImageMIME(mime string) bool {
	_, ok := AcceptedImageMIME[mime]
	return ok
}
