package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
)

const (
	totpPeriod = 30
	qrCodeSize = 200
)

// TOTPEnrollment is what an authenticator app needs to enrol
type TOTPEnrollment struct {
	Secret string
	// EnrollmentURI is the otpauth:// URI encoded in the QR code
	EnrollmentURI string
	QRCodePNG     []byte
}

// EnableTOTP generates and stores a new shared secret for the user.
// Enrolling again replaces the previous secret.
func (s *Service) EnableTOTP(ctx context.Context, userID model.UserID) (*TOTPEnrollment, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.TOTPIssuer,
		AccountName: user.Username,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	var qr bytes.Buffer
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	if err := png.Encode(&qr, img); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	if err := s.storage.SetTOTPSecret(ctx, userID, key.Secret()); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("save totp secret: %w", err)
	}

	s.logger.Info("totp enrolled", slog.String("user_id", string(userID)))
	return &TOTPEnrollment{
		Secret:        key.Secret(),
		EnrollmentURI: key.URL(),
		QRCodePNG:     qr.Bytes(),
	}, nil
}

// VerifyTOTP checks a six digit code against the stored secret, accepting
// codes up to TOTPSkew steps either side of now. A wrong code is (false, nil).
func (s *Service) VerifyTOTP(ctx context.Context, userID model.UserID, code string) (bool, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	if !user.HasTOTP() {
		return false, ErrTOTPNotEnabled
	}

	ok, err := totp.ValidateCustom(code, user.TOTPSecret, s.clock.Now(), s.validateOpts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("validate totp: %w", err)
	}
	return ok, nil
}

func (s *Service) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      s.cfg.TOTPSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
