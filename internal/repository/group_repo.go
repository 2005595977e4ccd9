package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"manasa/backend/internal/model"
	pkgerrors "manasa/backend/pkg/errors"
)

// GroupRepository 小组文档数据访问接口
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	// ListByTeacher 教师视图：teacher_uid == uid
	ListByTeacher(ctx context.Context, teacherUID string) ([]model.Group, error)
	// ListByStudentUsername 学生视图：student_usernames 包含 username
	ListByStudentUsername(ctx context.Context, username string) ([]model.Group, error)
	// Update 整文档写回，按 version 比较并交换，成功后 group.Version 自增
	Update(ctx context.Context, group *model.Group) error
	Delete(ctx context.Context, id string) error
}

type groupRepo struct {
	db *gorm.DB
}

// NewGroupRepo 创建 GroupRepository 实例
func NewGroupRepo(db *gorm.DB) GroupRepository {
	return &groupRepo{db: db}
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) error {
	group.Normalize()
	group.RebuildMembership()
	if group.Version == 0 {
		group.Version = 1
	}
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Where("group_id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	group.Normalize()
	return &group, nil
}

func (r *groupRepo) ListByTeacher(ctx context.Context, teacherUID string) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).
		Where("teacher_uid = ?", teacherUID).
		Order("created_at ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].Normalize()
	}
	return groups, nil
}

func (r *groupRepo) ListByStudentUsername(ctx context.Context, username string) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).
		Where("? = ANY(student_usernames)", strings.ToLower(username)).
		Order("created_at ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].Normalize()
	}
	return groups, nil
}

func (r *groupRepo) Update(ctx context.Context, group *model.Group) error {
	group.Normalize()
	oldVersion := group.Version
	result := r.db.WithContext(ctx).
		Model(&model.Group{}).
		Where("group_id = ? AND version = ?", group.GroupID, oldVersion).
		Updates(map[string]interface{}{
			"name":              group.Name,
			"location":          group.Location,
			"phone":             group.Phone,
			"schedule":          group.Schedule,
			"students":          group.Students,
			"exams":             group.Exams,
			"student_usernames": group.StudentUsernames,
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	group.Version = oldVersion + 1
	return nil
}

func (r *groupRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("group_id = ?", id).
		Delete(&model.Group{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
