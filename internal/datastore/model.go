package datastore

// Observation is one row of a dataset table. Column names match the source
// spreadsheets so that tables created by earlier tooling can be read as-is.
type Observation struct {
	ID                        uint     `gorm:"primaryKey;column:id"`
	AdminUnitCode             string   `gorm:"column:Admin_Unit_Code;size:16"`
	SubUnitCode               string   `gorm:"column:Sub_Unit_Code;size:16"`
	SiteName                  string   `gorm:"column:Site_Name;size:64"`
	PlotName                  string   `gorm:"column:Plot_Name;size:32"`
	LocationType              string   `gorm:"column:Location_Type;size:32"`
	Year                      *int64   `gorm:"column:Year"`
	Date                      string   `gorm:"column:Date;size:32"`
	StartTime                 string   `gorm:"column:Start_Time;size:16"`
	EndTime                   string   `gorm:"column:End_Time;size:16"`
	Observer                  string   `gorm:"column:Observer;size:64"`
	Visit                     string   `gorm:"column:Visit;size:8"`
	IntervalLength            string   `gorm:"column:Interval_Length;size:32"`
	IDMethod                  string   `gorm:"column:ID_Method;size:32"`
	Distance                  string   `gorm:"column:Distance;size:32"`
	FlyoverObserved           string   `gorm:"column:Flyover_Observed;size:8"`
	Sex                       string   `gorm:"column:Sex;size:16"`
	CommonName                string   `gorm:"column:Common_Name;size:128"`
	ScientificName            string   `gorm:"column:Scientific_Name;size:128"`
	AcceptedTNCode            string   `gorm:"column:AcceptedTNCode;size:16"`
	NPSTaxonCode              string   `gorm:"column:NPSTaxonCode;size:16"`
	AOUCode                   string   `gorm:"column:AOU_Code;size:16"`
	PIFWatchlistStatus        string   `gorm:"column:PIF_Watchlist_Status;size:16"`
	RegionalStewardshipStatus string   `gorm:"column:Regional_Stewardship_Status;size:16"`
	Temperature               *float64 `gorm:"column:Temperature"`
	Humidity                  *float64 `gorm:"column:Humidity"`
	Sky                       string   `gorm:"column:Sky;size:64"`
	Wind                      string   `gorm:"column:Wind;size:64"`
	Disturbance               string   `gorm:"column:Disturbance;size:64"`
	InitialThreeMinCnt        string   `gorm:"column:Initial_Three_Min_Cnt;size:8"`
}

// surrogateKey is the storage-only primary key dropped from fetched tables
const surrogateKey = "id"
