package database

import "time"

// Reading is one 10-minute quality-controlled observation.
type Reading struct {
	StationName   string    `gorm:"column:station_name;primaryKey"`
	Date          time.Time `gorm:"column:date;type:date;primaryKey"`
	Time          string    `gorm:"column:time;type:time;primaryKey"`
	Temperature   *float64  `gorm:"column:temperature"`
	Pressure      *float64  `gorm:"column:pressure"`
	WindSpeed     *float64  `gorm:"column:wind_speed"`
	WindDirection *float64  `gorm:"column:wind_direction"`
	Humidity      *float64  `gorm:"column:humidity"`
	DeltaT        *float64  `gorm:"column:delta_t"`
}

// TableName implements the gorm Tabler interface.
func (Reading) TableName() string {
	return "aws_10min"
}

// RealtimeReading is the latest observation of one realtime station.
type RealtimeReading struct {
	StationName   string    `gorm:"column:station_name;primaryKey"`
	Date          time.Time `gorm:"column:date;type:date"`
	Time          string    `gorm:"column:time;type:time"`
	Temperature   *float64  `gorm:"column:temperature"`
	Pressure      *float64  `gorm:"column:pressure"`
	WindSpeed     *float64  `gorm:"column:wind_speed"`
	WindDirection *float64  `gorm:"column:wind_direction"`
	Humidity      *float64  `gorm:"column:humidity"`
	Latitude      *float64  `gorm:"column:latitude"`
	Longitude     *float64  `gorm:"column:longitude"`
	Region        string    `gorm:"column:region"`
}

// TableName implements the gorm Tabler interface.
func (RealtimeReading) TableName() string {
	return "aws_realtime"
}
