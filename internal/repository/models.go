package repository

// Models lists every GORM model, for AutoMigrate in development.
func Models() []interface{} {
	return []interface{}{
		&VehicleModel{},
		&BookingModel{},
		&JobModel{},
		&ScheduleModel{},
		&HealthSnapshotModel{},
		&HistoryModel{},
		&NotificationModel{},
		&ContactModel{},
		&MessageModel{},
	}
}
