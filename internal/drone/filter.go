package drone

import (
	"strings"

	"drone-dance.klederson.com/internal/bluetooth"
)

// Local name prefixes used by Parrot MiniDrone firmware.
var namePrefixes = []string{
	"RS_", "Mars_", "Travis_", "Maclan_", "Mambo_", "Blaze_", "NewZ_", "Swat_", "Delos_",
}

// Manufacturer payload prefixes (after the Parrot company ID) of the
// MiniDrone product family.
var productSignatures = [][]byte{
	{0xcf, 0x19, 0x00, 0x09, 0x01, 0x00},
	{0xcf, 0x19, 0x09, 0x09, 0x01, 0x00},
	{0xcf, 0x19, 0x07, 0x09, 0x01, 0x00},
}

// IsDrone reports whether an advertisement comes from a supported drone.
func IsDrone(adv bluetooth.Advertisement) bool {
	for _, p := range namePrefixes {
		if strings.HasPrefix(adv.LocalName, p) {
			return true
		}
	}
	for _, sig := range productSignatures {
		if adv.HasManufacturerPrefix(bluetooth.CompanyParrot, sig) {
			return true
		}
	}
	return false
}
