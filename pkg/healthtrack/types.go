package healthtrack

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingInitFlag is returned when a tool check payload has no init flag.
var ErrMissingInitFlag = errors.New("tool check info is missing the init flag")

// UserInfo is the public profile of a user.
type UserInfo struct {
	Login             string         `json:"login"                     yaml:"login"`
	DisplayID         string         `json:"displayId"                 yaml:"display_id"`
	Nickname          string         `json:"nickname"                  yaml:"nickname"`
	HeadImgFileURL    string         `json:"headImgFileUrl"            yaml:"head_img_file_url"`
	Birthday          *string        `json:"birthday,omitempty"        yaml:"birthday,omitempty"`
	Signature         *string        `json:"signature,omitempty"       yaml:"signature,omitempty"`
	FollowsNum        int            `json:"followsNum"                yaml:"follows_num"`
	FansNum           int            `json:"fansNum"                   yaml:"fans_num"`
	LocationIDs       []string       `json:"locationIds,omitempty"     yaml:"location_ids,omitempty"`
	UserCenterBgImage *CenterBgImage `json:"userCenterBgImage,omitempty" yaml:"user_center_bg_image,omitempty"`
	UserType          UserType       `json:"userType"                  yaml:"user_type"`
	OpenParticipated  bool           `json:"openParticipated"          yaml:"open_participated"`
	OpenSensitived    *bool          `json:"openSensitived,omitempty"  yaml:"open_sensitived,omitempty"`
	CreatedTime       float64        `json:"createdTime"               yaml:"created_time"`
	Deleted           bool           `json:"deleted"                   yaml:"deleted"`
}

// UnmarshalJSON decodes the profile with UserTypeUser as the default type.
func (u *UserInfo) UnmarshalJSON(data []byte) error {
	type alias UserInfo

	decoded := alias{UserType: UserTypeUser}

	err := json.Unmarshal(data, &decoded)
	if err != nil {
		return err
	}

	*u = UserInfo(decoded)

	return nil
}

// CenterBgImage is the cover image of a user's profile page.
type CenterBgImage struct {
	URL        string  `json:"url"        yaml:"url"`
	Brightness float32 `json:"brightness" yaml:"brightness"`
}

// AuthUserInfo holds details only the signed-in user can see.
type AuthUserInfo struct {
	BanUserInfo          *BlockInfo     `json:"banUserInfo,omitempty"          yaml:"ban_user_info,omitempty"`
	Email                *string        `json:"email,omitempty"                yaml:"email,omitempty"`
	VerifyEmail          bool           `json:"verifyEmail"                    yaml:"verify_email"`
	IsFullProfile        bool           `json:"isFullProfile"                  yaml:"is_full_profile"`
	LastModifiedPassword *string        `json:"lastModifiedPassword,omitempty" yaml:"last_modified_password,omitempty"`
	AnonymousInfo        *AnonymousInfo `json:"userAnonymousDTO,omitempty"     yaml:"anonymous_info,omitempty"`
}

// BlockInfo describes a mute placed on the account.
type BlockInfo struct {
	// Type is SYSTEM or ARTIFICIAL.
	Type string `json:"type" yaml:"type"`
	// BanEndTime is nil for a permanent ban.
	BanEndTime *string `json:"banEndTime,omitempty" yaml:"ban_end_time,omitempty"`
	Message    string  `json:"message"              yaml:"message"`
}

// AnonymousInfo is the user's anonymous community identity.
type AnonymousInfo struct {
	DisplayName string `json:"displayName" yaml:"display_name"`
	HeadImgURL  string `json:"headImgUrl"  yaml:"head_img_url"`
}

// AuthenticatedUser combines the profile and the private details.
type AuthenticatedUser struct {
	Info        UserInfo     `json:"info"        yaml:"info"`
	DetailsInfo AuthUserInfo `json:"detailsInfo" yaml:"details_info"`
}

// UnmarshalJSON accepts both the nested {info, detailsInfo} form and the flat
// form the API returns, where both parts share one object.
func (a *AuthenticatedUser) UnmarshalJSON(data []byte) error {
	var nested struct {
		Info        *UserInfo     `json:"info"`
		DetailsInfo *AuthUserInfo `json:"detailsInfo"`
	}

	err := json.Unmarshal(data, &nested)
	if err == nil && nested.Info != nil && nested.DetailsInfo != nil {
		a.Info = *nested.Info
		a.DetailsInfo = *nested.DetailsInfo

		return nil
	}

	var info UserInfo

	err = json.Unmarshal(data, &info)
	if err != nil {
		return fmt.Errorf("failed to decode user info: %w", err)
	}

	var details AuthUserInfo

	err = json.Unmarshal(data, &details)
	if err != nil {
		return fmt.Errorf("failed to decode user details: %w", err)
	}

	a.Info = info
	a.DetailsInfo = details

	return nil
}

// ToolCheckInfo reports whether the user has filled in the initial tracking
// settings. Info is only decoded when Init is true.
type ToolCheckInfo struct {
	Init bool             `json:"init"           yaml:"init"`
	Info *ToolSettingInfo `json:"info,omitempty" yaml:"info,omitempty"`
}

// UnmarshalJSON reads the init flag and, when set, the settings from the same
// object.
func (t *ToolCheckInfo) UnmarshalJSON(data []byte) error {
	var flag struct {
		Init *bool `json:"init"`
	}

	err := json.Unmarshal(data, &flag)
	if err != nil {
		return err
	}

	if flag.Init == nil {
		return ErrMissingInitFlag
	}

	t.Init = *flag.Init
	t.Info = nil

	if !t.Init {
		return nil
	}

	var info ToolSettingInfo

	err = json.Unmarshal(data, &info)
	if err != nil {
		return fmt.Errorf("failed to decode tool settings: %w", err)
	}

	t.Info = &info

	return nil
}

// MarshalJSON writes the flat form UnmarshalJSON reads.
func (t ToolCheckInfo) MarshalJSON() ([]byte, error) {
	if !t.Init || t.Info == nil {
		return json.Marshal(map[string]bool{"init": t.Init})
	}

	settings, err := json.Marshal(t.Info)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage

	err = json.Unmarshal(settings, &fields)
	if err != nil {
		return nil, err
	}

	fields["init"] = json.RawMessage("true")

	return json.Marshal(fields)
}

// ToolSettingInfo is the user's tracking configuration.
type ToolSettingInfo struct {
	LastStartDate            *string        `json:"lastStartDate,omitempty"            yaml:"last_start_date,omitempty"`
	PeriodLength             int            `json:"periodLength"                       yaml:"period_length"`
	IsCloseAutoCycle         bool           `json:"isCloseAutoCycle"                   yaml:"is_close_auto_cycle"`
	CycleLength              int            `json:"cycleLength"                        yaml:"cycle_length"`
	InitialCycleLength       int            `json:"initialCycleLength"                 yaml:"initial_cycle_length"`
	Birthday                 string         `json:"birthday"                           yaml:"birthday"`
	ShowType                 ToolMode       `json:"showType"                           yaml:"show_type"`
	PregnancyStartTime       *string        `json:"pregnancyStartTime,omitempty"       yaml:"pregnancy_start_time,omitempty"`
	PregnancyDueTime         *string        `json:"pregnancyDueTime,omitempty"         yaml:"pregnancy_due_time,omitempty"`
	PredictionType           PredictionType `json:"predictionType"                     yaml:"prediction_type"`
	ProPredictionCycleLength *int           `json:"propredictionCycleLength,omitempty" yaml:"pro_prediction_cycle_length,omitempty"`
	DialViewType             *DialMode      `json:"dialViewType,omitempty"             yaml:"dial_view_type,omitempty"`
}

// UnmarshalJSON decodes the settings with period mode and base prediction as
// defaults.
func (s *ToolSettingInfo) UnmarshalJSON(data []byte) error {
	type alias ToolSettingInfo

	decoded := alias{ShowType: ToolModePeriod, PredictionType: PredictionBase}

	err := json.Unmarshal(data, &decoded)
	if err != nil {
		return err
	}

	*s = ToolSettingInfo(decoded)

	return nil
}

// PeriodInfo is one recorded period.
type PeriodInfo struct {
	VersionID  int     `json:"versionId"         yaml:"version_id"`
	StartTime  string  `json:"startTime"         yaml:"start_time"`
	EndTime    *string `json:"endTime,omitempty" yaml:"end_time,omitempty"`
	IndexIncre int     `json:"indexIncre"        yaml:"index_incre"`
}

// SymptomLog is the record of one day.
type SymptomLog struct {
	Date          string   `json:"date"                    yaml:"date"`
	VersionID     int      `json:"versionId"               yaml:"version_id"`
	PregnancyTest *string  `json:"pregnancyTest,omitempty" yaml:"pregnancy_test,omitempty"`
	Bleeding      *string  `json:"bleeding,omitempty"      yaml:"bleeding,omitempty"`
	Mucus         *string  `json:"mucus,omitempty"         yaml:"mucus,omitempty"`
	Energy        *string  `json:"energy,omitempty"        yaml:"energy,omitempty"`
	Pills         *string  `json:"pills,omitempty"         yaml:"pills,omitempty"`
	Love          *string  `json:"love,omitempty"          yaml:"love,omitempty"`
	Note          *string  `json:"note,omitempty"          yaml:"note,omitempty"`
	Symptoms      []string `json:"symptoms,omitempty"      yaml:"symptoms,omitempty"`
	Moods         []string `json:"moods,omitempty"         yaml:"moods,omitempty"`
	// IsNotSave is true while the record has not been saved to the server.
	IsNotSave *bool `json:"isNotSave,omitempty" yaml:"is_not_save,omitempty"`
	IsDelete  *bool `json:"isDelete,omitempty"  yaml:"is_delete,omitempty"`
}

// LoginAuth carries credentials for the login endpoint. Password logins use
// Username and Password; third-party logins use AuthorizationCode.
type LoginAuth struct {
	Username          *string  `json:"username,omitempty"          validate:"required_if=AuthType PASSWORD"`
	Password          *string  `json:"password,omitempty"          validate:"required_if=AuthType PASSWORD"`
	Nickname          *string  `json:"nickname,omitempty"`
	HeadImgFileURL    *string  `json:"headImgFileUrl,omitempty"    validate:"omitempty,url"`
	AuthorizationCode *string  `json:"authorizationCode,omitempty" validate:"required_unless=AuthType PASSWORD"`
	Email             *string  `json:"email,omitempty"             validate:"omitempty,email"`
	AuthType          AuthType `json:"authType"                    validate:"required,oneof=PASSWORD APPLE GOOGLE"`
}

// Validate checks that the fields required by the auth type are present.
func (l *LoginAuth) Validate() error {
	return Validate(l)
}

// EmptyModel is the payload type of endpoints that return no data.
type EmptyModel struct{}
