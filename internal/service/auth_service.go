package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/jwt"
	"github.com/qs3c/stake_go_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrUsernameExists     = errors.New("用户名已被使用")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrInvalidInviteCode  = errors.New("邀请码无效")
	ErrUserNotFound       = errors.New("用户不存在")
)

type AuthService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	balRepo  *repository.BalanceRepository
	teamRepo *repository.TeamRepository
	cfg      *config.Config
}

func NewAuthService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	balRepo *repository.BalanceRepository,
	teamRepo *repository.TeamRepository,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		db:       db,
		userRepo: userRepo,
		balRepo:  balRepo,
		teamRepo: teamRepo,
		cfg:      cfg,
	}
}

// Register 注册：用户、钱包、邀请边在一个事务里落库
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	exists, err = s.userRepo.ExistsByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}

	// 邀请码可选，填了就必须有效
	var inviter *model.User
	if req.InviteCode != "" {
		inviter, err = s.userRepo.GetByInviteCode(req.InviteCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidInviteCode
			}
			return nil, err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	inviteCode, err := s.generateInviteCode()
	if err != nil {
		return nil, err
	}

	passwordStr := string(hashedPassword)
	user := &model.User{
		Username:     req.Username,
		Email:        &req.Email,
		PasswordHash: &passwordStr,
		Role:         "user",
		InviteCode:   inviteCode,
	}
	if inviter != nil {
		user.InviterID = &inviter.ID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(user); err != nil {
			return err
		}

		balance := &model.UserBalance{UserID: user.ID}
		if err := s.balRepo.WithTx(tx).Create(balance); err != nil {
			return err
		}

		if inviter != nil {
			edge := &model.InvitedMember{
				SponsorID: inviter.ID,
				UserID:    user.ID,
			}
			if err := s.teamRepo.WithTx(tx).CreateEdge(edge); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{
		UserID:     user.ID,
		InviteCode: user.InviteCode,
	}, nil
}

// Login 登录换取 token
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  buildUserInfo(user),
	}, nil
}

// GetProfile 当前用户信息
func (s *AuthService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return buildUserInfo(user), nil
}

// generateInviteCode 生成未占用的 8 位邀请码
func (s *AuthService) generateInviteCode() (string, error) {
	const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	for i := 0; i < 5; i++ {
		raw := make([]byte, 8)
		if _, err := rand.Read(raw); err != nil {
			return "", err
		}
		code := make([]byte, 8)
		for j, b := range raw {
			code[j] = alphabet[int(b)%len(alphabet)]
		}

		exists, err := s.userRepo.ExistsByInviteCode(string(code))
		if err != nil {
			return "", err
		}
		if !exists {
			return string(code), nil
		}
	}
	return "", fmt.Errorf("failed to generate unique invite code")
}

func buildUserInfo(user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:         user.ID,
		Username:   user.Username,
		Role:       user.Role,
		InviteCode: user.InviteCode,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
	if user.Email != nil {
		info.Email = *user.Email
	}
	return info
}
