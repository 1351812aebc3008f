package notify2

import (
	"image"
	"math"

	"github.com/godbus/dbus/v5"
)

// Standard hint keys.
// See: https://specifications.freedesktop.org/notification-spec/latest/hints.html
const (
	HintUrgency       = "urgency"
	HintCategory      = "category"
	HintDesktopEntry  = "desktop-entry"
	HintImageData     = "image-data"
	HintImagePath     = "image-path"
	HintResident      = "resident"
	HintSoundFile     = "sound-file"
	HintSoundName     = "sound-name"
	HintSuppressSound = "suppress-sound"
	HintTransient     = "transient"
	HintX             = "x"
	HintY             = "y"
)

// SetHint sets a hint, with the value marshalled using its Go type. An int
// is sent as INT32. Values that have no D-Bus representation are rejected
// with ErrInvalidArgument; pass a dbus.Variant to control the wire type.
func (n *Notification) SetHint(key string, value interface{}) error {
	v, err := hintVariant(value)
	if err != nil {
		return err
	}
	n.setHint(key, v)
	return nil
}

func hintVariant(value interface{}) (dbus.Variant, error) {
	switch v := value.(type) {
	case dbus.Variant:
		return v, nil
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return dbus.Variant{}, invalidArgument("hint value %d does not fit in INT32", v)
		}
		return dbus.MakeVariant(int32(v)), nil
	case float32:
		return dbus.MakeVariant(float64(v)), nil
	case string, bool, byte, int16, uint16, int32, uint32, int64, uint64, float64,
		[]byte, []string, dbus.ObjectPath:
		return dbus.MakeVariant(v), nil
	}
	return dbus.Variant{}, invalidArgument("hint value of type %T cannot be sent over D-Bus", value)
}

func (n *Notification) setHint(key string, v dbus.Variant) {
	n.mu.Lock()
	n.hints[key] = v
	n.mu.Unlock()
}

// Hint returns the hint stored under key.
func (n *Notification) Hint(key string) (dbus.Variant, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.hints[key]
	return v, ok
}

// ClearHints removes all hints, including urgency and category.
func (n *Notification) ClearHints() {
	n.mu.Lock()
	n.hints = make(map[string]dbus.Variant)
	n.mu.Unlock()
}

// SetHintString sets a STRING hint.
func (n *Notification) SetHintString(key, value string) {
	n.setHint(key, dbus.MakeVariant(value))
}

// SetHintInt32 sets an INT32 hint.
func (n *Notification) SetHintInt32(key string, value int32) {
	n.setHint(key, dbus.MakeVariant(value))
}

// SetHintDouble sets a DOUBLE hint.
func (n *Notification) SetHintDouble(key string, value float64) {
	n.setHint(key, dbus.MakeVariant(value))
}

// SetHintByte sets a BYTE hint.
func (n *Notification) SetHintByte(key string, value byte) {
	n.setHint(key, dbus.MakeVariant(value))
}

// SetHintBool sets a BOOLEAN hint.
func (n *Notification) SetHintBool(key string, value bool) {
	n.setHint(key, dbus.MakeVariant(value))
}

// SetCategory sets the category hint, e.g. "email.arrived".
func (n *Notification) SetCategory(category string) {
	n.SetHintString(HintCategory, category)
}

// SetDesktopEntry names the desktop file of the calling application,
// without the ".desktop" suffix.
func (n *Notification) SetDesktopEntry(name string) {
	n.SetHintString(HintDesktopEntry, name)
}

// SetImagePath sets an image by icon name or file:// URI.
func (n *Notification) SetImagePath(path string) {
	n.SetHintString(HintImagePath, path)
}

// SetSoundFile sets the path of a sound file to play.
func (n *Notification) SetSoundFile(path string) {
	n.SetHintString(HintSoundFile, path)
}

// SetSoundName sets a themeable sound name, e.g. "message-new-instant".
func (n *Notification) SetSoundName(name string) {
	n.SetHintString(HintSoundName, name)
}

// SetSuppressSound asks the server not to play any sound.
func (n *Notification) SetSuppressSound(suppress bool) {
	n.SetHintBool(HintSuppressSound, suppress)
}

// SetResident keeps the notification after an action is invoked.
func (n *Notification) SetResident(resident bool) {
	n.SetHintBool(HintResident, resident)
}

// SetTransient asks the server to bypass persistence.
func (n *Notification) SetTransient(transient bool) {
	n.SetHintBool(HintTransient, transient)
}

// SetLocation sets the screen position the notification should point to.
func (n *Notification) SetLocation(x, y int32) {
	n.SetHintInt32(HintX, x)
	n.SetHintInt32(HintY, y)
}

// imageData is the (iiibiiay) raw image hint structure.
type imageData struct {
	Width         int32
	Height        int32
	RowStride     int32
	HasAlpha      bool
	BitsPerSample int32
	Channels      int32
	Data          []byte
}

// SetImageData sets the image-data hint from img. It takes precedence over
// image-path on compliant servers.
func (n *Notification) SetImageData(img *image.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := 4 * w
	data := make([]byte, 0, stride*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		data = append(data, img.Pix[off:off+stride]...)
	}
	n.setHint(HintImageData, dbus.MakeVariant(imageData{
		Width:         int32(w),
		Height:        int32(h),
		RowStride:     int32(stride),
		HasAlpha:      true,
		BitsPerSample: 8,
		Channels:      4,
		Data:          data,
	}))
}
