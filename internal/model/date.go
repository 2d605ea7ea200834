package model

import "time"

// LocalDate はtをlocにおける暦日に変換し、UTCの0時として返す。
// DATE型カラムとの比較や日付キーに使用する。
func LocalDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfLocalDay はtを含むlocの日の開始時刻を返す。
func StartOfLocalDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
