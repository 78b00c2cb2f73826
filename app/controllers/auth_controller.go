package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/planflowhq/planflow/app/models"
	"github.com/planflowhq/planflow/app/repository"
	"github.com/planflowhq/planflow/internal/pkg/env"
	"github.com/planflowhq/planflow/internal/pkg/hcaptcha"
	"github.com/planflowhq/planflow/internal/pkg/identity"
	"github.com/planflowhq/planflow/internal/pkg/mail"
	"github.com/planflowhq/planflow/internal/pkg/session"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

var authValidate = validator.New()

type registerForm struct {
	Name     string `validate:"required,min=2,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

func HandleAuthLogin(c *fiber.Ctx) error {
	fm := fiber.Map{"type": "error"}

	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")

	// notice: in production you should not inform the user
	// with detailed messages about login failures
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail(email)
	if err != nil {
		fm["message"] = "There is a problem with the login process"
		return flash.WithError(c, fm).Redirect("/login?error=invalid_credentials")
	}

	if !user.CheckPassword(password) {
		fm["message"] = "There is a problem with the login process"
		return flash.WithError(c, fm).Redirect("/login?error=invalid_credentials")
	}

	if err := createUserSession(c, user); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect("/login?error=session")
	}

	_ = repository.GetGlobalFactory().GetUserRepository().UpdateFields(user.ID, map[string]interface{}{"last_login_at": time.Now()})

	fm = fiber.Map{"type": "success", "message": "Welcome back!"}
	return flash.WithSuccess(c, fm).Redirect("/dashboard")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	fm := fiber.Map{"type": "error"}

	// Verify hCaptcha token when configured
	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		valid, err := hcaptcha.Verify(c.FormValue("h-captcha-response"))
		if err != nil || !valid {
			errorMsg := "Captcha validation failed. Please try again."
			if err != nil && env.IsDev() {
				errorMsg = fmt.Sprintf("Captcha validation failed: %v", err)
			}
			if err != nil {
				log.Errorf("hCaptcha validation error: %v", err)
			}
			fm["message"] = errorMsg
			return flash.WithError(c, fm).Redirect("/register?error=captcha")
		}
	}

	form := registerForm{
		Name:     strings.TrimSpace(c.FormValue("name")),
		Email:    strings.ToLower(strings.TrimSpace(c.FormValue("email"))),
		Password: c.FormValue("password"),
	}
	if err := authValidate.Struct(&form); err != nil {
		fm["message"] = "Please check your name, email and password (min. 8 characters)"
		return flash.WithError(c, fm).Redirect("/register?error=validation")
	}

	user := &models.User{
		Name:    form.Name,
		Email:   form.Email,
		Tier:    models.TIER_FREE,
		Credits: identity.StartingCredits(),
		Theme:   models.THEME_SYSTEM,
	}
	if err := user.SetPassword(form.Password); err != nil {
		fm["message"] = "Registration failed, please try again"
		return flash.WithError(c, fm).Redirect("/register?error=internal")
	}

	resolved, created, err := repository.GetGlobalFactory().GetUserRepository().GetOrCreateByEmail(user)
	if err != nil {
		fm["message"] = "Registration failed, please try again"
		return flash.WithError(c, fm).Redirect("/register?error=internal")
	}
	if !created {
		fm["message"] = "An account with this email already exists"
		return flash.WithError(c, fm).Redirect("/register?error=email_taken")
	}

	if err := createUserSession(c, resolved); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect("/login?error=session")
	}

	fm = fiber.Map{"type": "success", "message": "Welcome to PlanFlow!"}
	return flash.WithSuccess(c, fm).Redirect("/dashboard")
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{"type": "error"}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"
		return flash.WithError(c, fm).Redirect("/login")
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect("/login")
	}

	c.Locals(usercontext.KeyFromProtected, false)

	fm = fiber.Map{"type": "success", "message": "See you soon!"}
	return flash.WithSuccess(c, fm).Redirect("/login")
}

// HandleForgotPassword always reports success so the form cannot be used to
// probe which emails have accounts.
func HandleForgotPassword(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	fm := fiber.Map{"type": "success", "message": "If an account exists for this email, a reset link is on its way"}

	if email == "" {
		return flash.WithSuccess(c, fm).Redirect("/forgot-password")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("forgot password lookup failed: %v", err)
		}
		return flash.WithSuccess(c, fm).Redirect("/forgot-password")
	}

	if err := user.GenerateResetToken(); err != nil {
		log.Errorf("reset token generation failed: %v", err)
		return flash.WithSuccess(c, fm).Redirect("/forgot-password")
	}
	if err := repo.Update(user); err != nil {
		log.Errorf("reset token persist failed: %v", err)
		return flash.WithSuccess(c, fm).Redirect("/forgot-password")
	}

	go func(to, token string) {
		if err := mail.SendPasswordReset(to, token); err != nil {
			log.Errorf("password reset mail to %s failed: %v", to, err)
		}
	}(user.Email, user.ResetToken)

	return flash.WithSuccess(c, fm).Redirect("/forgot-password")
}

func HandleResetPassword(c *fiber.Ctx) error {
	fm := fiber.Map{"type": "error"}

	token := strings.TrimSpace(c.FormValue("token"))
	password := c.FormValue("password")
	if token == "" || len(password) < 8 {
		fm["message"] = "Invalid reset request"
		return flash.WithError(c, fm).Redirect("/reset-password?error=validation")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByResetToken(token)
	if err != nil || !user.IsResetTokenValid(token) {
		fm["message"] = "This reset link is invalid or has expired"
		return flash.WithError(c, fm).Redirect("/forgot-password?error=token")
	}

	if err := user.SetPassword(password); err != nil {
		fm["message"] = "Password reset failed, please try again"
		return flash.WithError(c, fm).Redirect("/reset-password?error=internal")
	}
	user.ClearResetToken()
	if err := repo.Update(user); err != nil {
		fm["message"] = "Password reset failed, please try again"
		return flash.WithError(c, fm).Redirect("/reset-password?error=internal")
	}

	fm = fiber.Map{"type": "success", "message": "Password updated, you can log in now"}
	return flash.WithSuccess(c, fm).Redirect("/login")
}

func createUserSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyUserEmail, user.Email)
	sess.Set("user_tier", user.Tier)

	return sess.Save()
}
