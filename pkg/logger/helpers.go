package logger

// LogDownload logs a media download outcome
func LogDownload(mediaID, filename string, success bool, err error) {
	fields := map[string]interface{}{
		"media_id": mediaID,
		"filename": filename,
		"success":  success,
	}

	l := GetLogger().WithFields(fields)

	if err != nil {
		l.WithError(err).Error("Download failed")
	} else if success {
		l.Info("Download completed")
	} else {
		l.Debug("Download skipped")
	}
}

// LogUpsert logs the outcome counts of one upsert batch
func LogUpsert(entity string, inserted, updated int) {
	GetLogger().InfoWithFields("Upsert completed", map[string]interface{}{
		"entity":   entity,
		"inserted": inserted,
		"updated":  updated,
	})
}

// LogSkippedRecord logs a raw record dropped during normalization
func LogSkippedRecord(reactionID string, err error) {
	GetLogger().WithFields(map[string]interface{}{
		"reaction_id": reactionID,
	}).WithError(err).Warn("Skipping malformed record")
}
