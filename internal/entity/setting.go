package entity

type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

const SettingKeyGlobalConfig = "global_config"
