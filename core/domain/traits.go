package domain

import (
	"strings"

	"soundswap/core/catalog"
)

// Traits 一个声音域的差异化参数，其余流程四个域共用
type Traits struct {
	// Name 域名，也是设置文件名和 API 路径
	Name string
	// Noun 用户提示里的名词
	Noun string
	// FolderName 设置根目录下的本地文件夹
	FolderName string
	// ManifestSegment 内容包清单中的数组名
	ManifestSegment string
	// TargetTokens 目标发现时可参与替换的目标名
	TargetTokens []string
}

var (
	Sirens = Traits{
		Name:            "sirens",
		Noun:            "siren",
		FolderName:      "Sirens",
		ManifestSegment: catalog.SegmentSirens,
		TargetTokens:    []string{"Police", "Fire", "Ambulance", "Hearse", "Disaster", "Garbage"},
	}
	VehicleEngines = Traits{
		Name:            "vehicleEngines",
		Noun:            "engine",
		FolderName:      "VehicleEngines",
		ManifestSegment: catalog.SegmentVehicleEngines,
		TargetTokens:    []string{"Car", "Truck", "Bus", "Motorcycle", "Tram", "Train"},
	}
	Ambient = Traits{
		Name:            "ambient",
		Noun:            "ambient sound",
		FolderName:      "Ambient",
		ManifestSegment: catalog.SegmentAmbient,
		TargetTokens:    []string{"City", "Forest", "Sea", "Rain", "Wind", "Industrial"},
	}
	TransitAnnouncements = Traits{
		Name:            "transitAnnouncements",
		Noun:            "transit announcement",
		FolderName:      "TransitAnnouncements",
		ManifestSegment: catalog.SegmentTransitAnnouncements,
		TargetTokens:    []string{"Bus", "Tram", "Metro", "Train", "Ferry", "Monorail"},
	}
)

// All 返回所有域，顺序固定
func All() []Traits {
	return []Traits{Sirens, VehicleEngines, Ambient, TransitAnnouncements}
}

// ByName 大小写无关地按名字查找域
func ByName(name string) (Traits, bool) {
	for _, t := range All() {
		if strings.EqualFold(t.Name, name) || strings.EqualFold(t.FolderName, name) {
			return t, true
		}
	}
	return Traits{}, false
}

// Names 所有域名
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}
