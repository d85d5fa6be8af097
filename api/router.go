package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fyerfyer/med-kb-engine/api/handler"
	"github.com/fyerfyer/med-kb-engine/api/middleware"
)

// Handlers 路由需要的全部处理器
// queue或repo未启用时对应的处理器可以为nil，相关路由不会注册
type Handlers struct {
	Clean    *handler.CleanHandler
	Annotate *handler.AnnotateHandler
	QA       *handler.QAHandler
	Pipeline *handler.PipelineHandler
	KB       *handler.KBHandler
	Corpus   *handler.CorpusHandler
	Run      *handler.RunHandler
}

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(h Handlers) *gin.Engine {
	// 创建默认的Gin路由引擎
	router := gin.Default()

	// 应用全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(middleware.SetTraceID())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	// 创建API分组
	api := router.Group("/api")
	{
		// 文本清洗 - POST /api/clean
		api.POST("/clean", h.Clean.Clean)

		// 医疗文本标注 - POST /api/annotate
		api.POST("/annotate", h.Annotate.Annotate)

		// 问答对生成 - POST /api/qa/generate
		api.POST("/qa/generate", h.QA.Generate)

		// 流水线处理 - POST /api/pipeline
		api.POST("/pipeline", h.Pipeline.Run)

		// 异步流水线 - POST /api/pipeline/async
		api.POST("/pipeline/async", h.Pipeline.RunAsync)

		// 任务状态查询 - GET /api/tasks/:id
		api.GET("/tasks/:id", h.Pipeline.GetTask)

		// 知识库操作 - POST /api/kb
		api.POST("/kb", h.KB.Handle)

		// 语料文件管理
		if h.Corpus != nil {
			api.POST("/corpus", h.Corpus.Upload)
			api.GET("/corpus", h.Corpus.List)
		}

		// 运行记录查询
		if h.Run != nil {
			api.GET("/runs", h.Run.ListRuns)
			api.GET("/runs/:id", h.Run.GetRun)
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
// 如果需要支持跨域请求，可以启用此中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
