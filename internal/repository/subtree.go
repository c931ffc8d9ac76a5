package repository

import (
	"context"
	"fmt"

	"pressroom/internal/cache"
	"pressroom/internal/models"
	"pressroom/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// NodeKind names the root of a deletable subtree.
type NodeKind string

const (
	NodePost    NodeKind = "post"
	NodeComment NodeKind = "comment"
	NodeReply   NodeKind = "reply"
)

// DeleteReport lists what a subtree delete removed.
type DeleteReport struct {
	Kind   NodeKind
	RootID uint
	// PostID is the post the subtree belonged to.
	PostID    uint
	Posts     int64
	Comments  int64
	Replies   int64
	Reactions int64
}

// SubtreeRepository removes a node together with everything beneath it.
type SubtreeRepository interface {
	// DeleteSubtree deletes the root and its descendants in one
	// transaction. Reactions go before their targets, replies before
	// their comments, comments before their post. A missing root
	// returns NOT_FOUND and deletes nothing.
	DeleteSubtree(ctx context.Context, kind NodeKind, rootID uint) (DeleteReport, error)
}

type subtreeRepository struct {
	db          *gorm.DB
	inTx        bool
	afterCommit func(func())
}

// NewSubtreeRepository creates a new SubtreeRepository
func NewSubtreeRepository(db *gorm.DB) SubtreeRepository {
	return &subtreeRepository{db: db, afterCommit: runNow}
}

func (r *subtreeRepository) DeleteSubtree(ctx context.Context, kind NodeKind, rootID uint) (report DeleteReport, err error) {
	ctx, span := observability.StartSpan(ctx, "repository.DeleteSubtree",
		attribute.String("subtree.kind", string(kind)),
		attribute.Int64("subtree.root_id", int64(rootID)),
	)
	defer func() { span.End(err) }()

	var slug string
	run := func(tx *gorm.DB) error {
		var runErr error
		report, slug, runErr = deleteSubtree(tx.WithContext(ctx), kind, rootID)
		return runErr
	}
	if r.inTx {
		err = run(r.db)
	} else {
		err = r.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return DeleteReport{}, err
	}

	span.AddAttributes(
		attribute.Int64("subtree.comments", report.Comments),
		attribute.Int64("subtree.replies", report.Replies),
		attribute.Int64("subtree.reactions", report.Reactions),
	)
	r.afterCommit(func() {
		observability.SubtreeDeletions.WithLabelValues(string(kind)).Inc()
		observability.SubtreeRowsDeleted.WithLabelValues("post").Add(float64(report.Posts))
		observability.SubtreeRowsDeleted.WithLabelValues("comment").Add(float64(report.Comments))
		observability.SubtreeRowsDeleted.WithLabelValues("reply").Add(float64(report.Replies))
		observability.SubtreeRowsDeleted.WithLabelValues("reaction").Add(float64(report.Reactions))
		if kind == NodePost {
			cache.InvalidatePost(context.WithoutCancel(ctx), slug)
		}
	})
	return report, nil
}

func deleteSubtree(tx *gorm.DB, kind NodeKind, rootID uint) (DeleteReport, string, error) {
	report := DeleteReport{Kind: kind, RootID: rootID}
	var (
		slug       string
		commentIDs []uint
		replyIDs   []uint
	)

	switch kind {
	case NodePost:
		var post models.Post
		if err := tx.Select("id", "slug").First(&post, rootID).Error; err != nil {
			return report, "", notFound(err, "Post", rootID)
		}
		report.PostID = post.ID
		slug = post.Slug
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", rootID).Pluck("id", &commentIDs).Error; err != nil {
			return report, "", err
		}
		if len(commentIDs) > 0 {
			if err := tx.Model(&models.Reply{}).Where("comment_id IN ?", commentIDs).Pluck("id", &replyIDs).Error; err != nil {
				return report, "", err
			}
		}
	case NodeComment:
		var comment models.Comment
		if err := tx.Select("id", "post_id").First(&comment, rootID).Error; err != nil {
			return report, "", notFound(err, "Comment", rootID)
		}
		report.PostID = comment.PostID
		commentIDs = []uint{rootID}
		if err := tx.Model(&models.Reply{}).Where("comment_id = ?", rootID).Pluck("id", &replyIDs).Error; err != nil {
			return report, "", err
		}
	case NodeReply:
		var reply models.Reply
		if err := tx.Select("id", "comment_id").First(&reply, rootID).Error; err != nil {
			return report, "", notFound(err, "Reply", rootID)
		}
		var postIDs []uint
		if err := tx.Model(&models.Comment{}).Where("id = ?", reply.CommentID).Pluck("post_id", &postIDs).Error; err != nil {
			return report, "", err
		}
		if len(postIDs) > 0 {
			report.PostID = postIDs[0]
		}
		replyIDs = []uint{rootID}
	default:
		return report, "", models.NewValidationError(fmt.Sprintf("unknown node kind %q", kind))
	}

	if len(replyIDs) > 0 {
		n, err := deleteReactions(tx, models.TargetReply, replyIDs)
		if err != nil {
			return report, "", err
		}
		report.Reactions += n
		res := tx.Where("id IN ?", replyIDs).Delete(&models.Reply{})
		if res.Error != nil {
			return report, "", res.Error
		}
		report.Replies = res.RowsAffected
	}

	if len(commentIDs) > 0 {
		n, err := deleteReactions(tx, models.TargetComment, commentIDs)
		if err != nil {
			return report, "", err
		}
		report.Reactions += n
		res := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{})
		if res.Error != nil {
			return report, "", res.Error
		}
		report.Comments = res.RowsAffected
	}

	if kind == NodePost {
		res := tx.Where("id = ?", rootID).Delete(&models.Post{})
		if res.Error != nil {
			return report, "", res.Error
		}
		report.Posts = res.RowsAffected
	}

	if rootRows(report) == 0 {
		return report, "", models.NewNotFoundError(rootResource(kind), rootID)
	}
	return report, slug, nil
}

func deleteReactions(tx *gorm.DB, target models.TargetType, ids []uint) (int64, error) {
	res := tx.Where("target_type = ? AND target_id IN ?", target, ids).Delete(&models.Reaction{})
	return res.RowsAffected, res.Error
}

func rootRows(r DeleteReport) int64 {
	switch r.Kind {
	case NodePost:
		return r.Posts
	case NodeComment:
		return r.Comments
	default:
		return r.Replies
	}
}

func rootResource(kind NodeKind) string {
	switch kind {
	case NodePost:
		return "Post"
	case NodeComment:
		return "Comment"
	default:
		return "Reply"
	}
}
