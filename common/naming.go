package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Constellation defines the kind of satellites
type Constellation int

const (
	Unknown   Constellation = iota
	Landsat89               // LXSS_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CX_TX with SS = 08 or 09
	Landsat47               // LXSS_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CX_TX with SS = 04 to 07 (TM, ETM+)
	Landsat15               // LM0S_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CX_TX (MSS)
	LandsatEntity           // LXSPPPRRRYYYYDDDGSIVV (scene entity id)
)

func (c Constellation) String() string {
	switch c {
	case Landsat89:
		return "Landsat89"
	case Landsat47:
		return "Landsat47"
	case Landsat15:
		return "Landsat15"
	case LandsatEntity:
		return "LandsatEntity"
	}
	return "Unknown"
}

var (
	landsat89Regexp     = regexp.MustCompile("^L[OTC]0[89]_")
	landsat47Regexp     = regexp.MustCompile("^L[TE]0[4-7]_")
	landsat15Regexp     = regexp.MustCompile("^LM0[1-5]_")
	landsatEntityRegexp = regexp.MustCompile("^L[CEOTM][1-9][0-9]{13}[A-Z]{3}[0-9]{2}$")
)

// GetConstellationFromString returns the constellation from the user input
func GetConstellationFromString(input string) Constellation {
	switch strings.ToLower(input) {
	case "landsat89", "landsat8", "landsat9":
		return Landsat89
	case "landsat47", "landsat4", "landsat5", "landsat7":
		return Landsat47
	case "landsat15", "mss":
		return Landsat15
	}
	return GetConstellationFromProductId(input)
}

// GetConstellationFromProductId returns the constellation from a display id or an entity id
func GetConstellationFromProductId(sceneName string) Constellation {
	switch {
	case landsat89Regexp.MatchString(sceneName):
		return Landsat89
	case landsat47Regexp.MatchString(sceneName):
		return Landsat47
	case landsat15Regexp.MatchString(sceneName):
		return Landsat15
	case landsatEntityRegexp.MatchString(sceneName):
		return LandsatEntity
	}
	return Unknown
}

// GetDateFromProductId returns the acquisition date of the product
func GetDateFromProductId(sceneName string) (time.Time, error) {
	format, err := Info(sceneName)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", format["DATE"])
}

// sensorCollection returns the name of the sensor, as used in the collection-2 archive layout
func sensorCollection(sensor, satellite string) string {
	switch sensor {
	case "O":
		return "oli"
	case "T":
		if satellite == "08" || satellite == "09" {
			return "tirs"
		}
		return "tm"
	case "E":
		return "etm"
	case "M":
		return "mss"
	}
	return "oli-tirs"
}

// Info parses the display id (or the entity id) of a product
func Info(sceneName string) (map[string]string, error) {
	switch GetConstellationFromProductId(sceneName) {
	case Landsat89, Landsat47, Landsat15:
		// LC09_L1GT_166003_20250603_20250603_02_T2
		if len(sceneName) < len("LXSS_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CX_TX") {
			return nil, fmt.Errorf("invalid Landsat file name: %s", sceneName)
		}
		return map[string]string{
			"SCENE":             sceneName,
			"MISSION_ID":        sceneName[0:1] + sceneName[2:4],
			"SENSOR":            sceneName[1:2],
			"PROCESSING_LEVEL":  sceneName[5:9],
			"DATE":              sceneName[17:25],
			"YEAR":              sceneName[17:21],
			"MONTH":             sceneName[21:23],
			"DAY":               sceneName[23:25],
			"PROCESSING_DATE":   sceneName[26:34],
			"COLLECTION_NUMBER": sceneName[35:37],
			"CATEGORY":          sceneName[38:40],
			"COLLECTION":        sensorCollection(sceneName[1:2], sceneName[2:4]),
			"PATH":              sceneName[10:13],
			"ROW":               sceneName[13:16],
		}, nil
	case LandsatEntity:
		// LC81960302020153LGN00
		date, err := time.Parse("2006002", sceneName[9:16])
		if err != nil {
			return nil, fmt.Errorf("invalid Landsat entity id %s: %w", sceneName, err)
		}
		return map[string]string{
			"SCENE":       sceneName,
			"MISSION_ID":  "L0" + sceneName[2:3],
			"SENSOR":      sceneName[1:2],
			"PATH":        sceneName[3:6],
			"ROW":         sceneName[6:9],
			"DATE":        date.Format("20060102"),
			"YEAR":        sceneName[9:13],
			"MONTH":       date.Format("01"),
			"DAY":         date.Format("02"),
			"DAY_OF_YEAR": sceneName[13:16],
			"STATION":     sceneName[16:19],
			"VERSION":     sceneName[19:21],
		}, nil
	}
	return nil, fmt.Errorf("Info: constellation not supported (%s)", sceneName)
}

/**
 * FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
 * keys must be one of SCENE, MISSION_ID, SENSOR, DATE(YEAR/MONTH/DAY), PATH, ROW, COLLECTION...
 */
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}
