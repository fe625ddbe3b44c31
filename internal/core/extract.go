package core

import "strings"

// cell returns the trimmed value at idx, or "" when the row is too short.
func cell(row RawRow, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Extract reads the mapped cells of row. The second result is false when the
// created time is empty: such a row is not a lead and must be skipped.
func Extract(row RawRow, cols ColumnMap) (RowFields, bool) {
	get := func(f Field) string { return cell(row, cols.Index(f)) }

	fields := RowFields{
		CreatedTime:  get(FieldCreatedTime),
		AdName:       get(FieldAdName),
		AdsetName:    get(FieldAdsetName),
		CampaignName: get(FieldCampaignName),
		FormName:     get(FieldFormName),
		Platform:     get(FieldPlatform),
		StartDateRaw: get(FieldStartDate),
		PeopleCount:  get(FieldPeopleCount),
		FullName:     get(FieldFullName),
		Email:        get(FieldEmail),
		PhoneRaw:     get(FieldPhone),
		City:         get(FieldCity),
	}
	if fields.CreatedTime == "" {
		return RowFields{}, false
	}
	return fields, true
}

// Candidate normalizes the extracted fields.
func (f RowFields) Candidate() LeadCandidate {
	return LeadCandidate{
		CreatedTime:        f.CreatedTime,
		AdName:             f.AdName,
		AdsetName:          f.AdsetName,
		CampaignName:       f.CampaignName,
		FormName:           f.FormName,
		Platform:           f.Platform,
		City:               f.City,
		PreferredStartDate: NormalizeDate(f.StartDateRaw),
		PeopleCount:        f.PeopleCount,
		FullName:           f.FullName,
		Email:              f.Email,
		Phone:              NormalizePhone(f.PhoneRaw),
	}
}
